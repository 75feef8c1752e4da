package geocode

import "strings"

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
	"pr": "puerto rico",
}

var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()

// StateCode returns the uppercase two-letter code for a state given either
// its name or its code. Unknown input yields "".
func StateCode(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	if _, ok := abbrToState[lower]; ok {
		return strings.ToUpper(lower)
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return strings.ToUpper(abbr)
	}
	return ""
}

package normalize

import (
	"regexp"
	"strings"
)

// A capitalised name word: McDonald, O'Brien, Smith-Jones. It must end in a
// lowercase letter so degree tokens such as DDS or PhD never qualify.
const capWord = `[A-Z][A-Za-z'-]*[a-z]`

var (
	// "Bright Smiles: Dr. Jane Alvarez", "Clinic - Dr Ray Ortiz"
	reDrAfterSeparator = regexp.MustCompile(`[:\x{2013}-]\s*Dr\.?\s+(` + capWord + `(?:\s+` + capWord + `)+)`)

	// "Dr. Jane Alvarez Family Dentistry"
	reDrLeading = regexp.MustCompile(`^Dr\.?\s+(` + capWord + `(?:\s+` + capWord + `)+)`)

	// "John Carter, DDS"
	reDegreeSuffix = regexp.MustCompile(`(` + capWord + `\s+` + capWord + `)\s*,?\s*(?:D\.D\.S\.|D\.M\.D\.|(?:DDS|DMD|MD|PhD)\b)`)

	// Entire name is two or three capitalised words
	reBareName = regexp.MustCompile(`^` + capWord + `(?:\s+` + capWord + `){1,2}$`)
)

// practiceWords mark an office name as a business name rather than a person,
// so "Sunrise Family Dental" is not mistaken for a dentist called Sunrise.
var practiceWords = wordSet(
	"ASSOCIATES", "CARE", "CENTER", "CENTRE", "CLINIC", "COSMETIC",
	"DENTAL", "DENTISTRY", "DENTISTS", "ENDODONTICS", "FAMILY", "GROUP",
	"HEALTH", "IMPLANTS", "INSTITUTE", "KIDS", "MEDICAL", "OFFICE",
	"ORAL", "ORTHODONTICS", "PARTNERS", "PEDIATRIC", "PERIODONTICS",
	"PRACTICE", "PROSTHODONTICS", "SERVICES", "SMILE", "SMILES",
	"SPECIALISTS", "STUDIO", "SURGERY", "SURGICAL", "WELLNESS",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

type contactMatcher func(name string) (string, bool)

// Tried in order; the first match wins.
var contactMatchers = []contactMatcher{
	submatchRule(reDrAfterSeparator),
	submatchRule(reDrLeading),
	submatchRule(reDegreeSuffix),
	bareNameRule,
}

func submatchRule(re *regexp.Regexp) contactMatcher {
	return func(name string) (string, bool) {
		m := re.FindStringSubmatch(name)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

func bareNameRule(name string) (string, bool) {
	if !reBareName.MatchString(name) {
		return "", false
	}
	for _, w := range strings.Fields(name) {
		if practiceWords[strings.ToUpper(w)] {
			return "", false
		}
	}
	return name, true
}

// ExtractContact derives an addressee such as "Dr. Jane Alvarez" from an
// office name. Names that do not look personal come back exactly as given,
// surrounding whitespace included.
func ExtractContact(officeName string) string {
	name := strings.TrimSpace(officeName)
	for _, match := range contactMatchers {
		if person, ok := match(name); ok {
			return "Dr. " + strings.Join(strings.Fields(person), " ")
		}
	}
	return officeName
}

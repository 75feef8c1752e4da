package labels

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/referral-labels/internal/model"
)

// SourceFilter selects records by origin.
type SourceFilter string

const (
	SourceAll        SourceFilter = "all"
	SourcePartner    SourceFilter = "partner"
	SourceDiscovered SourceFilter = "discovered"
)

// ParseSourceFilter accepts all, partner or discovered; blank means all.
func ParseSourceFilter(s string) (SourceFilter, error) {
	switch f := SourceFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SourceAll, nil
	case SourceAll, SourcePartner, SourceDiscovered:
		return f, nil
	}
	return "", fmt.Errorf("unknown source filter %q", s)
}

// Filters is the user's current selection.
//
// Tiers restricts partner offices only; an empty set means every tier,
// including untiered offices. With Source "all", discovered offices are
// included only when IncludeDiscovered is set. Source "discovered" selects
// them regardless.
type Filters struct {
	Tiers             []model.Tier `json:"tiers,omitempty"`
	Search            string       `json:"search,omitempty"`
	Source            SourceFilter `json:"source,omitempty"`
	IncludeDiscovered bool         `json:"includeDiscovered"`
	LogParseErrors    bool         `json:"logParseErrors"`
}

// Equal compares filters by content. Tier order is significant.
func (f Filters) Equal(o Filters) bool {
	return slices.Equal(f.Tiers, o.Tiers) &&
		f.Search == o.Search &&
		f.source() == o.source() &&
		f.IncludeDiscovered == o.IncludeDiscovered &&
		f.LogParseErrors == o.LogParseErrors
}

func (f Filters) source() SourceFilter {
	if f.Source == "" {
		return SourceAll
	}
	return f.Source
}

// Matches reports whether record passes the filters.
func Matches(record model.RawOfficeRecord, f Filters) bool {
	switch record.Source {
	case model.SourceDiscovered:
		switch f.source() {
		case SourcePartner:
			return false
		case SourceAll:
			if !f.IncludeDiscovered {
				return false
			}
		}
	default:
		if f.source() == SourceDiscovered {
			return false
		}
		if len(f.Tiers) > 0 && !slices.Contains(f.Tiers, record.Tier) {
			return false
		}
	}
	return matchesSearch(record, f.Search)
}

func matchesSearch(record model.RawOfficeRecord, search string) bool {
	needle := fold(search)
	if needle == "" {
		return true
	}
	return strings.Contains(fold(record.Name), needle) ||
		strings.Contains(fold(record.AddressText()), needle)
}

// fold lowercases and strips accents so "José" matches "jose".
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

package correction

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/referral-labels/internal/store"
)

// Request asks for standardized addresses for a set of offices.
type Request struct {
	OfficeIDs []string `json:"officeIds"`
}

// Result pairs an office's current address with the suggested one.
type Result struct {
	ID        string `json:"id"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
}

// Response carries one result per requested office. NeedsUpdate counts the
// results whose corrected address differs from the original.
type Response struct {
	Results     []Result `json:"results"`
	NeedsUpdate int      `json:"needsUpdate"`
}

// ApplyRequest lists the approved corrections.
type ApplyRequest struct {
	Updates []store.AddressUpdate `json:"updates"`
}

// ApplyResult reports how many of the submitted updates were written.
type ApplyResult struct {
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// Requester produces correction suggestions.
type Requester interface {
	RequestCorrections(ctx context.Context, req Request) (*Response, error)
}

// Applier writes approved corrections.
type Applier interface {
	ApplyCorrections(ctx context.Context, req ApplyRequest) (*ApplyResult, error)
}

// Candidate is one row of the review dialog.
type Candidate struct {
	OfficeID   string  `json:"officeId"`
	OfficeName string  `json:"officeName"`
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
	Changed    bool    `json:"changed"`
}

// Outcome summarises an apply. Failed is Total minus Updated.
type Outcome struct {
	Updated int `json:"updated"`
	Total   int `json:"total"`
	Failed  int `json:"failed"`
}

// Partial reports whether some approved corrections were not written.
func (o Outcome) Partial() bool {
	return o.Updated < o.Total
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Differs reports whether corrected is more than a whitespace change of
// original. Case counts: "main st" -> "Main St" is a correction.
func Differs(original, corrected string) bool {
	return strings.Join(strings.Fields(original), " ") != strings.Join(strings.Fields(corrected), " ")
}

// Similarity is 1 minus the normalized edit distance between the two
// addresses, compared case-insensitively. Identical addresses score 1.
func Similarity(original, corrected string) float64 {
	a, b := canonical(original), canonical(corrected)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

package correction

import (
	"fmt"

	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
)

// EmptyReason explains why a correction run had nothing to submit.
type EmptyReason int

const (
	ReasonNone EmptyReason = iota
	ReasonNoOffices
	ReasonNoAddresses
	ReasonFilteredOut
)

func (r EmptyReason) String() string {
	switch r {
	case ReasonNoOffices:
		return "no_offices"
	case ReasonNoAddresses:
		return "no_addresses"
	case ReasonFilteredOut:
		return "filtered_out"
	}
	return "none"
}

// Message is the user-facing explanation.
func (r EmptyReason) Message() string {
	switch r {
	case ReasonNoOffices:
		return "There are no partner offices to correct."
	case ReasonNoAddresses:
		return "None of your partner offices have an address on file."
	case ReasonFilteredOut:
		return "The current filters exclude every office with an address. Adjust the filters and try again."
	}
	return ""
}

// EmptySelectionError is returned when no office qualifies for correction.
type EmptySelectionError struct {
	Reason EmptyReason
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("nothing to correct: %s", e.Reason)
}

// SelectOffices returns the partner offices with an address that pass
// filters. When the result is empty the reason says which condition
// eliminated everything.
func SelectOffices(records []model.RawOfficeRecord, filters labels.Filters) ([]model.RawOfficeRecord, EmptyReason) {
	partners, withAddress := 0, 0
	var selected []model.RawOfficeRecord
	for _, r := range records {
		if r.Source != model.SourcePartner {
			continue
		}
		partners++
		if !r.HasAddress() {
			continue
		}
		withAddress++
		if labels.Matches(r, filters) {
			selected = append(selected, r)
		}
	}

	switch {
	case partners == 0:
		return nil, ReasonNoOffices
	case withAddress == 0:
		return nil, ReasonNoAddresses
	case len(selected) == 0:
		return nil, ReasonFilteredOut
	}
	return selected, ReasonNone
}

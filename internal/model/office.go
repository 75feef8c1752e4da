package model

import (
	"fmt"
	"strings"
)

// Tier is the relationship tier assigned to a partner office.
type Tier string

const (
	TierVIP     Tier = "VIP"
	TierWarm    Tier = "Warm"
	TierCold    Tier = "Cold"
	TierDormant Tier = "Dormant"
)

// AllTiers lists the tiers in display order.
var AllTiers = []Tier{TierVIP, TierWarm, TierCold, TierDormant}

// ParseTier accepts a tier name in any case. An empty string means no tier.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, t := range AllTiers {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Source records where an office came from.
type Source string

const (
	SourcePartner    Source = "partner"
	SourceDiscovered Source = "discovered"
)

// ParseSource accepts "partner" or "discovered" in any case.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partner":
		return SourcePartner, nil
	case "discovered":
		return SourceDiscovered, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// RawOfficeRecord is an office as supplied by the store. Address is nil when
// the office has no address on file.
type RawOfficeRecord struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address"`
	Tier    Tier    `json:"tier,omitempty"`
	Source  Source  `json:"source"`
}

// AddressText returns the free-text address or "" when none is on file.
func (r RawOfficeRecord) AddressText() string {
	if r.Address == nil {
		return ""
	}
	return *r.Address
}

// HasAddress reports whether the record carries a non-blank address.
func (r RawOfficeRecord) HasAddress() bool {
	return strings.TrimSpace(r.AddressText()) != ""
}

// Equal compares two records by content.
func (r RawOfficeRecord) Equal(o RawOfficeRecord) bool {
	if r.ID != o.ID || r.Name != o.Name || r.Tier != o.Tier || r.Source != o.Source {
		return false
	}
	if (r.Address == nil) != (o.Address == nil) {
		return false
	}
	return r.Address == nil || *r.Address == *o.Address
}

// StringPtr is a helper for building records with literal addresses.
func StringPtr(s string) *string {
	return &s
}

package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/normalize"
)

var (
	// ErrNoMatch means the provider found nothing for the address. Callers
	// keep the original address.
	ErrNoMatch = errors.New("no match for address")

	// ErrUnavailable means the provider cannot serve requests at all; a
	// batch should stop rather than continue address by address.
	ErrUnavailable = errors.New("standardizer unavailable")
)

// Standardizer rewrites a free-text US address into canonical form.
type Standardizer interface {
	Standardize(ctx context.Context, address string) (string, error)
}

// Options selects and configures a standardizer.
type Options struct {
	Provider          string // local, nominatim or libpostal
	BaseURL           string
	UserAgent         string
	Email             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New returns the standardizer named by opts.Provider.
func New(opts Options, logger *zap.Logger) (Standardizer, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "local":
		return Local{}, nil
	case "nominatim":
		return NewNominatim(opts, logger), nil
	case "libpostal":
		return newLibpostal()
	}
	return nil, fmt.Errorf("unknown geocoder provider %q", opts.Provider)
}

// Local reformats addresses with the built-in parser. It fixes spacing,
// country suffixes and unit designators but cannot correct streets or zips.
type Local struct{}

func (Local) Standardize(_ context.Context, address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", ErrNoMatch
	}
	return normalize.FormatAddress(normalize.ParseAddress(address)), nil
}

// components is a provider-neutral address breakdown.
type components struct {
	houseNumber string
	road        string
	unit        string
	city        string
	state       string
	postcode    string
}

// format renders components the way the label parser expects to read them
// back: "123 Main St, Suite 200, Irvine, CA 92618". The unit from the
// original address is kept when the provider drops it.
func (c components) format(original string) (string, error) {
	street := strings.TrimSpace(c.houseNumber + " " + c.road)
	state := StateCode(c.state)
	if street == "" || c.city == "" || state == "" {
		return "", ErrNoMatch
	}

	unit := c.unit
	if unit == "" {
		unit = normalize.ParseAddress(original).Address2
	}
	return normalize.FormatAddress(normalize.ParsedAddress{
		Address1: street,
		Address2: unit,
		City:     c.city,
		State:    state,
		Zip:      c.postcode,
	}), nil
}

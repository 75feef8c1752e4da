//go:build libpostal

package geocode

import (
	"context"
	"strings"

	postal "github.com/openvenues/gopostal/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Libpostal standardizes addresses offline with the libpostal C library.
// It needs libpostal and its model data installed, hence the build tag.
type Libpostal struct{}

func newLibpostal() (Standardizer, error) {
	return Libpostal{}, nil
}

func (Libpostal) Standardize(ctx context.Context, address string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(address) == "" {
		return "", ErrNoMatch
	}

	title := cases.Title(language.English)
	var c components
	for _, comp := range postal.ParseAddress(address) {
		switch comp.Label {
		case "house_number":
			c.houseNumber = comp.Value
		case "road":
			c.road = title.String(comp.Value)
		case "unit":
			c.unit = title.String(comp.Value)
		case "city", "suburb":
			if c.city == "" || comp.Label == "city" {
				c.city = title.String(comp.Value)
			}
		case "state":
			c.state = comp.Value
		case "postcode":
			c.postcode = comp.Value
		}
	}
	return c.format(address)
}

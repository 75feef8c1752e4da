package import_pkg

import (
	"context"
	"fmt"

	"github.com/referral-labels/internal/model"
)

// Layouts accepted by Import.
const (
	LayoutOffices    = "offices"
	LayoutPartners   = "partners"
	LayoutDiscovered = "discovered"
)

// Import loads filename using the named layout.
func (ci *CSVImporter) Import(ctx context.Context, filename, layout string) (Summary, error) {
	switch layout {
	case LayoutOffices, "":
		return ci.ImportOffices(ctx, filename)
	case LayoutPartners:
		return ci.ImportPartners(ctx, filename)
	case LayoutDiscovered:
		return ci.ImportDiscovered(ctx, filename)
	}
	return Summary{}, fmt.Errorf("unknown import layout %q", layout)
}

// ImportOffices imports the combined office export.
// Columns: id,name,address,tier,source
func (ci *CSVImporter) ImportOffices(ctx context.Context, filename string) (Summary, error) {
	return ci.ImportFile(ctx, filename, LayoutOffices, MapOffice)
}

// ImportPartners imports the partner directory. Every row is a partner.
// Columns: id,name,address,tier
func (ci *CSVImporter) ImportPartners(ctx context.Context, filename string) (Summary, error) {
	return ci.ImportFile(ctx, filename, LayoutPartners, func(record []string, h Header) (*model.RawOfficeRecord, error) {
		office, err := mapBase(record, h)
		if err != nil {
			return nil, err
		}
		if office.Tier, err = model.ParseTier(h.Get(record, "tier")); err != nil {
			return nil, err
		}
		office.Source = model.SourcePartner
		return office, nil
	})
}

// ImportDiscovered imports offices found outside the partner directory.
// Tiers are ignored for these.
// Columns: id,name,address
func (ci *CSVImporter) ImportDiscovered(ctx context.Context, filename string) (Summary, error) {
	return ci.ImportFile(ctx, filename, LayoutDiscovered, func(record []string, h Header) (*model.RawOfficeRecord, error) {
		office, err := mapBase(record, h)
		if err != nil {
			return nil, err
		}
		office.Source = model.SourceDiscovered
		return office, nil
	})
}

// MapOffice maps the combined layout.
func MapOffice(record []string, h Header) (*model.RawOfficeRecord, error) {
	office, err := mapBase(record, h)
	if err != nil {
		return nil, err
	}
	if office.Tier, err = model.ParseTier(h.Get(record, "tier")); err != nil {
		return nil, err
	}
	if office.Source, err = model.ParseSource(h.Get(record, "source")); err != nil {
		return nil, err
	}
	if office.Source == model.SourceDiscovered {
		office.Tier = ""
	}
	return office, nil
}

func mapBase(record []string, h Header) (*model.RawOfficeRecord, error) {
	for _, col := range []string{"id", "name"} {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("missing %q column", col)
		}
	}
	id := h.Get(record, "id")
	if id == "" {
		return nil, fmt.Errorf("empty id")
	}
	return &model.RawOfficeRecord{
		ID:      id,
		Name:    h.Get(record, "name"),
		Address: optionalAddress(h.Get(record, "address")),
	}, nil
}

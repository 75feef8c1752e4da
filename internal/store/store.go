package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/referral-labels/internal/model"
)

var ErrNotFound = errors.New("office not found")

// AddressUpdate replaces the free-text address of one office.
type AddressUpdate struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Store persists raw office records.
type Store interface {
	ListOffices(ctx context.Context) ([]model.RawOfficeRecord, error)
	// GetOffices returns the offices with the given ids in request order,
	// skipping ids that do not exist.
	GetOffices(ctx context.Context, ids []string) ([]model.RawOfficeRecord, error)
	// UpdateAddresses applies updates and returns how many offices changed.
	UpdateAddresses(ctx context.Context, updates []AddressUpdate) (int, error)
	UpsertOffices(ctx context.Context, records []model.RawOfficeRecord) (int, error)
	Close() error
}

// Options selects a backend.
type Options struct {
	Driver         string // postgres, sqlite or memory
	URL            string
	Path           string
	MaxConnections int
}

// GetOffice returns the office with id, or ErrNotFound.
func GetOffice(ctx context.Context, s Store, id string) (model.RawOfficeRecord, error) {
	offices, err := s.GetOffices(ctx, []string{id})
	if err != nil {
		return model.RawOfficeRecord{}, err
	}
	if len(offices) == 0 {
		return model.RawOfficeRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return offices[0], nil
}

// Open returns the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "postgres", "postgresql":
		return OpenPostgres(ctx, opts.URL, opts.MaxConnections)
	case "", "sqlite":
		path := opts.Path
		if path == "" {
			path = "labels.db"
		}
		return OpenSQLite(ctx, path)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
}

func validate(r model.RawOfficeRecord) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("office id is required")
	}
	if r.Source != model.SourcePartner && r.Source != model.SourceDiscovered {
		return fmt.Errorf("office %s: invalid source %q", r.ID, r.Source)
	}
	return nil
}

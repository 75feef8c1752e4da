package store

import (
	"context"
	"sort"
	"sync"

	"github.com/referral-labels/internal/model"
)

// Memory is an in-process Store for tests and demos.
type Memory struct {
	mu      sync.RWMutex
	offices map[string]model.RawOfficeRecord
}

func NewMemory(records ...model.RawOfficeRecord) *Memory {
	m := &Memory{offices: make(map[string]model.RawOfficeRecord)}
	for _, r := range records {
		m.offices[r.ID] = copyRecord(r)
	}
	return m
}

func copyRecord(r model.RawOfficeRecord) model.RawOfficeRecord {
	if r.Address != nil {
		r.Address = model.StringPtr(*r.Address)
	}
	return r
}

func (m *Memory) ListOffices(ctx context.Context) ([]model.RawOfficeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.RawOfficeRecord, 0, len(m.offices))
	for _, r := range m.offices {
		out = append(out, copyRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetOffices(ctx context.Context, ids []string) ([]model.RawOfficeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.RawOfficeRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.offices[id]; ok {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func (m *Memory) UpdateAddresses(ctx context.Context, updates []AddressUpdate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := 0
	for _, u := range updates {
		r, ok := m.offices[u.ID]
		if !ok {
			continue
		}
		r.Address = model.StringPtr(u.Address)
		m.offices[u.ID] = r
		updated++
	}
	return updated, nil
}

func (m *Memory) UpsertOffices(ctx context.Context, records []model.RawOfficeRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, r := range records {
		if err := validate(r); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.offices[r.ID] = copyRecord(r)
	}
	return len(records), nil
}

func (m *Memory) Close() error { return nil }

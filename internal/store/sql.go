package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/referral-labels/internal/model"
)

// Dialect covers the SQL differences between the supported databases.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS offices (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	address    TEXT,
	tier       TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'partner',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLStore is a Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create offices table: %w", err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// DB exposes the pool for collaborators sharing the database.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectOffices = `SELECT id, name, address, tier, source FROM offices`

func (s *SQLStore) ListOffices(ctx context.Context) ([]model.RawOfficeRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectOffices+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}
	return scanOffices(rows)
}

func (s *SQLStore) GetOffices(ctx context.Context, ids []string) ([]model.RawOfficeRecord, error) {
	if len(ids) == 0 {
		return []model.RawOfficeRecord{}, nil
	}

	var rows *sql.Rows
	var err error
	if s.dialect == DialectPostgres {
		rows, err = s.db.QueryContext(ctx, selectOffices+` WHERE id = ANY($1)`, pq.Array(ids))
	} else {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		rows, err = s.db.QueryContext(ctx, selectOffices+` WHERE id IN (`+marks+`)`, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}

	found, err := scanOffices(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.RawOfficeRecord, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	out := make([]model.RawOfficeRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func scanOffices(rows *sql.Rows) ([]model.RawOfficeRecord, error) {
	defer rows.Close()

	out := []model.RawOfficeRecord{}
	for rows.Next() {
		var r model.RawOfficeRecord
		var address sql.NullString
		var tier, source string
		if err := rows.Scan(&r.ID, &r.Name, &address, &tier, &source); err != nil {
			return nil, fmt.Errorf("failed to scan office: %w", err)
		}
		if address.Valid {
			r.Address = model.StringPtr(address.String)
		}
		r.Tier = model.Tier(tier)
		r.Source = model.Source(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateAddresses(ctx context.Context, updates []AddressUpdate) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(
		`UPDATE offices SET address = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Address, u.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update office %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit updates: %w", err)
	}
	return updated, nil
}

func (s *SQLStore) UpsertOffices(ctx context.Context, records []model.RawOfficeRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.Rebind(`
		INSERT INTO offices (id, name, address, tier, source, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			tier = excluded.tier,
			source = excluded.source,
			updated_at = excluded.updated_at`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if err := validate(r); err != nil {
			return 0, err
		}
		var address sql.NullString
		if r.Address != nil {
			address = sql.NullString{String: *r.Address, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, address, string(r.Tier), string(r.Source)); err != nil {
			return 0, fmt.Errorf("failed to upsert office %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return len(records), nil
}

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/referral-labels/internal/debug"
	"github.com/referral-labels/internal/store"
)

// Tracker keeps an audit trail of applied address corrections
type Tracker struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewTracker creates the audit table if needed
func NewTracker(ctx context.Context, db *sql.DB, dialect store.Dialect) (*Tracker, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS address_correction_audit (
			run_id      TEXT NOT NULL,
			office_id   TEXT NOT NULL,
			old_address TEXT NOT NULL,
			new_address TEXT NOT NULL,
			confidence  REAL NOT NULL DEFAULT 0,
			applied_by  TEXT NOT NULL,
			applied_at  TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return &Tracker{db: db, dialect: dialect}, nil
}

// Correction is one applied address change
type Correction struct {
	RunID      string    `json:"runId"`
	OfficeID   string    `json:"officeId"`
	OldAddress string    `json:"oldAddress"`
	NewAddress string    `json:"newAddress"`
	Confidence float64   `json:"confidence"`
	AppliedBy  string    `json:"appliedBy"`
	AppliedAt  time.Time `json:"appliedAt"`
}

// RecordCorrections saves a batch of applied corrections in one transaction
func (t *Tracker) RecordCorrections(ctx context.Context, localDebug bool, corrections []Correction) error {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	if len(corrections) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, t.dialect.Rebind(`
		INSERT INTO address_correction_audit (
			run_id, office_id, old_address, new_address, confidence, applied_by, applied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range corrections {
		appliedAt := c.AppliedAt
		if appliedAt.IsZero() {
			appliedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, c.RunID, c.OfficeID, c.OldAddress, c.NewAddress,
			c.Confidence, c.AppliedBy, appliedAt.UTC()); err != nil {
			return fmt.Errorf("failed to record correction for office %s: %w", c.OfficeID, err)
		}
		debug.DebugOutput(localDebug, "Recorded correction for %s: %q -> %q", c.OfficeID, c.OldAddress, c.NewAddress)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit records: %w", err)
	}
	return nil
}

// History returns the corrections applied to one office, newest first
func (t *Tracker) History(ctx context.Context, officeID string) ([]Correction, error) {
	rows, err := t.db.QueryContext(ctx, t.dialect.Rebind(`
		SELECT run_id, office_id, old_address, new_address, confidence, applied_by, applied_at
		FROM address_correction_audit
		WHERE office_id = ?
		ORDER BY applied_at DESC`), officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction history: %w", err)
	}
	defer rows.Close()

	var history []Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.RunID, &c.OfficeID, &c.OldAddress, &c.NewAddress,
			&c.Confidence, &c.AppliedBy, &c.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

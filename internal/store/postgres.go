package store

import (
	"context"

	"github.com/referral-labels/internal/db"
)

// OpenPostgres connects to Postgres and ensures the offices table exists.
// An empty dsn falls back to the PG* environment variables.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*SQLStore, error) {
	conn, err := db.NewConnection(ctx, dsn, maxConns)
	if err != nil {
		return nil, err
	}
	s, err := newSQLStore(ctx, conn.DB, DialectPostgres)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

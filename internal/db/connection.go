package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/referral-labels/internal/config"
)

// Connection holds a Postgres connection pool
type Connection struct {
	DB *sql.DB
}

// NewConnection opens and pings a Postgres pool. An empty dsn is assembled
// from the standard PG* environment variables.
func NewConnection(ctx context.Context, dsn string, maxOpen int) (*Connection, error) {
	if dsn == "" {
		dsn = DSNFromEnv()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if maxOpen <= 0 {
		maxOpen = 20
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)

	return &Connection{DB: db}, nil
}

// DSNFromEnv builds a lib/pq connection string from PGHOST, PGPORT, PGUSER,
// PGPASSWORD, PGDATABASE and PGSSLMODE.
func DSNFromEnv() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.GetEnv("PGHOST", "localhost"),
		config.GetEnv("PGPORT", "5432"),
		config.GetEnv("PGUSER", "labels"),
		config.GetEnv("PGPASSWORD", "labels"),
		config.GetEnv("PGDATABASE", "referral_labels"),
		config.GetEnv("PGSSLMODE", "disable"))
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}

// Package db loads constants from PostgreSQL as an alternative to the CSV dataset.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"constserv/constants"
	"constserv/metrics"
)

const constantsTable = "constants"

// Store represents the database connection and operations
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, timeout: 5 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetupTables creates the constants table if it does not exist.
func (s *Store) SetupTables(ctx context.Context) error {
	createSQL := `
	CREATE TABLE IF NOT EXISTS constants (
		name TEXT PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT ''
	);`

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create '%s' table: %w", constantsTable, err)
	}
	return nil
}

// LoadConstants reads every constant ordered by name.
func (s *Store) LoadConstants(ctx context.Context) (result []constants.Constant, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.RecordDBOperation("select", constantsTable, status, time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value, unit FROM constants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query constants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c constants.Constant
		if err := rows.Scan(&c.Name, &c.Value, &c.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan constant: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate constants: %w", err)
	}
	return result, nil
}

// LoadTable reads every constant into a resolver table.
func (s *Store) LoadTable(ctx context.Context) (*constants.Table, error) {
	rows, err := s.LoadConstants(ctx)
	if err != nil {
		return nil, err
	}
	return constants.NewTable(rows)
}

// SeedConstants upserts constants in a single transaction.
func (s *Store) SeedConstants(ctx context.Context, items []constants.Constant) (err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.RecordDBOperation("upsert", constantsTable, status, time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsertSQL := `
	INSERT INTO constants (name, value, unit)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, unit = EXCLUDED.unit;`

	for _, c := range items {
		if _, err := tx.ExecContext(ctx, upsertSQL, c.Name, c.Value, c.Unit); err != nil {
			return fmt.Errorf("failed to upsert constant %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit constants: %w", err)
	}
	return nil
}

// Package repository provides persistence: the SQL credential backend of the
// client and the in-memory stores of the development server.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atinyakov/GophShelf/internal/db"
)

// SQLCredentialRepository implements credstore.Backend on a credentials table
// (name TEXT PRIMARY KEY, value TEXT).
type SQLCredentialRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
	// Driver selects the placeholder style: db.DriverSQLite or db.DriverPostgres.
	Driver string
}

// NewSQLCredentialRepository creates a repository over an open database.
func NewSQLCredentialRepository(conn *sql.DB, driver string) *SQLCredentialRepository {
	return &SQLCredentialRepository{DB: conn, Driver: driver}
}

// Get returns the value stored under key.
func (r *SQLCredentialRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, r.rebind(`SELECT value FROM credentials WHERE name = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts all values within one transaction.
func (r *SQLCredentialRepository) Set(ctx context.Context, values map[string]string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := r.rebind(`
		INSERT INTO credentials (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`)
	for name, value := range values {
		if _, err := tx.ExecContext(ctx, query, name, value); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the given keys within one transaction.
func (r *SQLCredentialRepository) Delete(ctx context.Context, keys ...string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := r.rebind(`DELETE FROM credentials WHERE name = ?`)
	for _, name := range keys {
		if _, err := tx.ExecContext(ctx, query, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLCredentialRepository) rebind(query string) string {
	if r.Driver != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

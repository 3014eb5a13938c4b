// Package sqlite persists credential scopes in a SQLite database file so a
// login survives process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/frenchtutorhub/hub/pkg/credstore"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

// DSN builds a modernc.org/sqlite DSN for a database file with WAL and a
// busy timeout, which keeps concurrent CLI invocations from failing on lock.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// NewStore opens the database at dsn. Call ApplyMigrations before use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One writer at a time; sqlite serializes anyway and this avoids
	// SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Scope returns the named scope of profile. Several profiles (accounts or
// environments) can share one database file.
func (s *Store) Scope(profile, name string) credstore.Scope {
	return &scope{db: s.db, profile: profile, name: name}
}

// Profiles lists the profiles that currently hold at least one value.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT profile FROM credentials ORDER BY profile`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list profiles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProfile removes every value of profile across all scopes.
func (s *Store) DeleteProfile(ctx context.Context, profile string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("sqlite: delete profile: %w", err)
	}
	return nil
}

type scope struct {
	db      *sql.DB
	profile string
	name    string
}

func (sc *scope) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := sc.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE profile = ? AND scope = ? AND key = ?`,
		sc.profile, sc.name, key,
	).Scan(&v)
	if err != nil {
		return "", mapNotFound(err)
	}
	return v, nil
}

func (sc *scope) Set(ctx context.Context, key, value string) error {
	_, err := sc.db.ExecContext(ctx, `
		INSERT INTO credentials (profile, scope, key, value, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (profile, scope, key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		sc.profile, sc.name, key, value,
	)
	return err
}

func (sc *scope) Delete(ctx context.Context, key string) error {
	_, err := sc.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE profile = ? AND scope = ? AND key = ?`,
		sc.profile, sc.name, key,
	)
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return credstore.ErrNotFound
	}
	return err
}

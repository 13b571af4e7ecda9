package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/keshon/cmdguard/internal/cooldown"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cooldowns (
	id      TEXT PRIMARY KEY,
	expires INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cooldowns_expires ON cooldowns (expires);`

// SQLiteStore keeps cooldown records in a single table; expires is unix nanoseconds.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLite opens the database at path (":memory:" allowed) and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Driver() string { return DriverSQLite }

func (s *SQLiteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM cooldowns WHERE expires < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite delete expired: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]cooldown.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, expires FROM cooldowns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite load: %w", err)
	}
	defer rows.Close()

	var out []cooldown.Record
	for rows.Next() {
		var (
			id      string
			expires int64
		)
		if err := rows.Scan(&id, &expires); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out = append(out, cooldown.Record{ID: id, Expires: time.Unix(0, expires).UTC()})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec cooldown.Record) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO cooldowns (id, expires) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET expires = excluded.expires`,
		rec.ID, rec.Expires.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM cooldowns WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

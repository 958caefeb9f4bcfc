package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mirror (
	key      TEXT PRIMARY KEY,
	value    BLOB NOT NULL,
	checksum TEXT NOT NULL,
	saved_at TEXT NOT NULL
)`

// SQLite keeps collections as rows of a single key-value table.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := util.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("create mirror dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite mirror: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating mirror schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Load implements Mirror.
func (s *SQLite) Load(ctx context.Context, c catalog.Collection) ([]catalog.Item, error) {
	var (
		value []byte
		sum   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, checksum FROM mirror WHERE key = ?`, string(c)).Scan(&value, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading mirror: %w", err)
	}
	if err := verify(util.SHA256Bytes(value), sum); err != nil {
		return nil, err
	}
	return decode(value)
}

// Save implements Mirror.
func (s *SQLite) Save(ctx context.Context, c catalog.Collection, items []catalog.Item) error {
	data, err := catalog.Marshal(items)
	if err != nil {
		return err
	}
	sum := util.SHA256Bytes(data)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mirror (key, value, checksum, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			checksum = excluded.checksum, saved_at = excluded.saved_at`,
		string(c), data, sum, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing mirror: %w", err)
	}
	return nil
}

// Clear implements Mirror.
func (s *SQLite) Clear(ctx context.Context, c catalog.Collection) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror WHERE key = ?`, string(c)); err != nil {
		return fmt.Errorf("clearing mirror: %w", err)
	}
	return nil
}

// Info implements Mirror.
func (s *SQLite) Info(ctx context.Context, c catalog.Collection) (Info, error) {
	info := Info{Collection: c, Location: s.path + "#" + string(c)}
	var (
		value   []byte
		savedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, checksum, saved_at FROM mirror WHERE key = ?`, string(c)).Scan(&value, &info.Checksum, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("reading mirror: %w", err)
	}
	info.Exists = true
	info.Bytes = int64(len(value))
	info.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	if items, err := catalog.Parse(value); err == nil {
		info.Items = len(items)
	}
	return info, nil
}

// Close implements Mirror.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Package secrets keeps encrypted configuration values (API tokens, account
// passwords) in a local SQLite table so they can be exported into a shell.
package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("secret not found")

// Store is the encrypted config_kv table.
type Store struct {
	db  *sql.DB
	key []byte
	log *slog.Logger
}

// Open opens (or creates) the SQLite database at dbPath and ensures the
// config_kv table exists. key must be 32 bytes.
func Open(dbPath string, key []byte, log *slog.Logger) (*Store, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", KeySize, len(key))
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening secrets db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS config_kv (
		key        TEXT PRIMARY KEY,
		value_enc  TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating config_kv table: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, key: key, log: log}, nil
}

// Set encrypts value and stores it under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid key %q: use letters, digits and underscores", key)
	}
	enc, err := Encrypt(value, s.key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO config_kv (key, value_enc, created_at, updated_at)
		 VALUES (?, ?, datetime('now'), datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value_enc = excluded.value_enc, updated_at = datetime('now')`,
		key, enc)
	if err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Get returns the decrypted value for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var enc string
	err := s.db.QueryRowContext(ctx, `SELECT value_enc FROM config_kv WHERE key = ?`, key).Scan(&enc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return Decrypt(enc, s.key)
}

// Delete removes key. Deleting an unknown key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM config_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// All returns every value that can be decrypted with the store's key. Rows
// that fail to decrypt (written with another key, or corrupted) are skipped.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value_enc FROM config_kv`)
	if err != nil {
		return nil, fmt.Errorf("querying config_kv: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, enc string
		if err := rows.Scan(&k, &enc); err != nil {
			return nil, fmt.Errorf("scanning config_kv: %w", err)
		}
		v, err := Decrypt(enc, s.key)
		if err != nil {
			s.log.Warn("skipping undecryptable secret", "key", k, "error", err)
			continue
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Env renders every secret as a shell export line, sorted by key.
func (s *Store) Env(ctx context.Context) (string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%s\n", k, ShellQuote(all[k]))
	}
	return b.String(), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ShellQuote wraps s in single quotes, escaping embedded single quotes.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Lookup reads one value from the store at dbPath using the key at keyPath.
// It returns ErrNotFound when the key file, the database or the entry is
// missing, so callers can fall back to other sources.
func Lookup(ctx context.Context, dbPath, keyPath, name string, log *slog.Logger) (string, error) {
	key, err := LoadKey(keyPath)
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", fmt.Errorf("no key at %s: %w", keyPath, ErrNotFound)
	}
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("no store at %s: %w", dbPath, ErrNotFound)
	}

	s, err := Open(dbPath, key, log)
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.Get(ctx, name)
}

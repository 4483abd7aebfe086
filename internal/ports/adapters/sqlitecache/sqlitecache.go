// Package sqlitecache memoizes translations so re-runs over the same video
// produce the same text without calling the provider again.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/clipdeck/internal/ports"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	provider    TEXT NOT NULL,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	source      TEXT NOT NULL,
	translation TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (provider, source_lang, target_lang, source)
)`

type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// Get returns the cached translation and whether one exists.
func (s *Store) Get(ctx context.Context, provider, from, to, source string) (string, bool, error) {
	var out string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT translation FROM translations
			 WHERE provider = ? AND source_lang = ? AND target_lang = ? AND source = ?`,
			provider, from, to, source,
		).Scan(&out)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read translation cache: %w", err)
	}
	return out, true, nil
}

func (s *Store) Put(ctx context.Context, provider, from, to, source, translation string) error {
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO translations (provider, source_lang, target_lang, source, translation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(provider, source_lang, target_lang, source)
			 DO UPDATE SET translation = excluded.translation, created_at = excluded.created_at`,
			provider, from, to, source, translation, time.Now().UTC().Format(time.RFC3339),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("write translation cache: %w", err)
	}
	return nil
}

// Translator serves hits from the store and records successful misses.
// Failures are never cached. A cache that cannot be written does not fail
// the translation.
type Translator struct {
	store    *Store
	provider string
	next     ports.Translator
	log      *slog.Logger
}

func Wrap(store *Store, provider string, next ports.Translator) *Translator {
	return &Translator{store: store, provider: provider, next: next, log: slog.New(slog.DiscardHandler)}
}

// WithLogger sets the logger used for cache errors.
func (t *Translator) WithLogger(log *slog.Logger) *Translator {
	if log != nil {
		t.log = log
	}
	return t
}

func (t *Translator) Translate(ctx context.Context, text, from, to string) (string, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return "", nil
	}
	if hit, ok, err := t.store.Get(ctx, t.provider, from, to, key); err == nil && ok {
		return hit, nil
	}
	out, err := t.next.Translate(ctx, key, from, to)
	if err != nil {
		return "", err
	}
	if err := t.store.Put(ctx, t.provider, from, to, key, out); err != nil {
		t.log.Warn("translation cache write failed", "path", t.store.Path(), "error", err)
	}
	return out, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

package sqlitecache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

type countingTranslator struct {
	calls int
	err   error
}

func (c *countingTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "EN:" + text, nil
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "translations.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetPut(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "p", "es", "en", "Hola"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "p", "es", "en", "Hola", "Hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "p", "es", "en", "Hola", "Hi"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "p", "es", "en", "Hola")
	if err != nil || !ok || got != "Hi" {
		t.Fatalf("got %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "other", "es", "en", "Hola"); ok {
		t.Fatalf("providers must not share entries")
	}
}

func TestTranslator_CachesSuccessOnly(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	failing := &countingTranslator{err: errors.New("offline")}
	if _, err := Wrap(s, "p", failing).Translate(ctx, "Hola", "es", "en"); err == nil {
		t.Fatalf("expected error to pass through")
	}

	next := &countingTranslator{}
	tr := Wrap(s, "p", next)
	for i := 0; i < 3; i++ {
		got, err := tr.Translate(ctx, " Hola ", "es", "en")
		if err != nil {
			t.Fatal(err)
		}
		if got != "EN:Hola" {
			t.Fatalf("unexpected translation %q", got)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
}

func TestTranslator_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Wrap(s, "p", &countingTranslator{}).Translate(context.Background(), "Sí", "es", "en"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	next := &countingTranslator{}
	got, err := Wrap(s2, "p", next).Translate(context.Background(), "Sí", "es", "en")
	if err != nil || got != "EN:Sí" || next.calls != 0 {
		t.Fatalf("got %q err=%v calls=%d", got, err, next.calls)
	}
}

func TestTranslator_CacheWriteFailureKeepsTranslation(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "translations.db"))
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	var logs bytes.Buffer
	next := &countingTranslator{}
	tr := Wrap(s, "p", next).WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	got, err := tr.Translate(context.Background(), "Hola", "es", "en")
	if err != nil || got != "EN:Hola" {
		t.Fatalf("expected translation despite cache failure, got %q err=%v", got, err)
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if !strings.Contains(logs.String(), "translation cache write failed") {
		t.Fatalf("expected cache failure to be logged, got %q", logs.String())
	}
}

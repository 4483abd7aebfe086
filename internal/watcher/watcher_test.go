package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsMedia(t *testing.T) {
	tests := map[string]bool{
		"/in/lesson.MP4":        true,
		"/in/podcast.m4a":       true,
		"/in/notes.txt":         false,
		"/in/.video-3.part.mp3": false,
		"/in/.partial.mp4":      false,
		"/in/no-extension":      false,
	}
	for in, want := range tests {
		if got := IsMedia(in); got != want {
			t.Fatalf("IsMedia(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWatcher_HandlesNewMedia(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 4)
	w, err := New(dir, func(_ context.Context, path string) error {
		got <- filepath.Base(path)
		return nil
	}, nil, 2, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clase.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case name := <-got:
		if name != "clase.mp4" {
			t.Fatalf("unexpected file handled: %s", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("handler was not called")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher did not stop")
	}
	select {
	case name := <-got:
		t.Fatalf("unexpected extra file handled: %s", name)
	default:
	}
}

func TestWaitStable_MissingFile(t *testing.T) {
	if err := waitStable(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"), time.Millisecond); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWaitStable_EmptyFileGivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- waitStable(context.Background(), path, time.Millisecond) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected an empty file never to count as stable")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("waitStable did not give up on an empty file")
	}
}

func TestWaitStable_SettledFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := waitStable(context.Background(), path, time.Millisecond); err != nil {
		t.Fatalf("expected settled file, got %v", err)
	}
}

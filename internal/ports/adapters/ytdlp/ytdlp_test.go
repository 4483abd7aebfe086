package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://youtu.be/abc", true},
		{"HTTP://example.com/v.mp4", true},
		{"/tmp/video.mp4", false},
		{"video.mp4", false},
		{"ftp://example.com/v.mp4", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Fatalf("IsURL(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFetch_ReturnsPrintedPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" +
		"out=\"" + dir + "/abc.m4a\"\n" +
		"echo audio > \"$out\"\n" +
		"echo \"[download] done\"\n" +
		"echo \"$out\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := New(bin).Fetch(context.Background(), "https://example.com/watch?v=abc", dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "abc.m4a") {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestFetch_MissingFile(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho /nope/missing.m4a\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := New(bin).Fetch(context.Background(), "https://example.com/x", t.TempDir()); err == nil {
		t.Fatalf("expected error")
	}
}

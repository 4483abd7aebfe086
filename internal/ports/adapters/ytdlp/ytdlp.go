package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Adapter downloads the best audio stream of a URL with yt-dlp.
type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// IsURL reports whether src should be fetched instead of read from disk.
func IsURL(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (a *Adapter) Fetch(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, a.bin,
		"--no-playlist",
		"--no-progress",
		"-f", "bestaudio/best",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
		url,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w\n%s", url, err, strings.TrimSpace(stderr.String()))
	}
	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("yt-dlp %s: no output path printed", url)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w", url, err)
	}
	return path, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

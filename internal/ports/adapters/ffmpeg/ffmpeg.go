package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudio(ctx context.Context, inMedia, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inMedia,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, tail(b))
	}
	return nil
}

// CutAudio writes the audio of [start, end) to outPath. The codec follows
// the output extension.
func (a *Adapter) CutAudio(ctx context.Context, inMedia string, start, end time.Duration, outPath string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg cut audio: empty range %s-%s", start, end)
	}
	args := []string{
		"-y",
		"-nostdin",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inMedia,
		"-map", "0:a:0",
		"-vn",
	}
	args = append(args, CodecArgs(filepath.Ext(outPath))...)
	args = append(args, outPath)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut audio: %w\n%s", err, tail(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inMedia string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inMedia,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, tail(b))
	}
	return ParseDuration(string(b))
}

// ParseDuration parses ffprobe's format=duration output.
func ParseDuration(out string) (time.Duration, error) {
	s := strings.TrimSpace(out)
	if s == "N/A" {
		return 0, nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// CodecArgs returns encoder flags for an audio container extension.
func CodecArgs(ext string) []string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return []string{"-c:a", "libmp3lame", "-q:a", "4"}
	case "m4a", "mp4", "aac":
		return []string{"-c:a", "aac", "-b:a", "128k"}
	case "ogg", "opus":
		return []string{"-c:a", "libopus", "-b:a", "64k"}
	case "wav":
		return []string{"-c:a", "pcm_s16le"}
	default:
		return nil
	}
}

// SupportedExt reports whether CodecArgs knows ext.
func SupportedExt(ext string) bool {
	return CodecArgs(ext) != nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// tail keeps the end of ffmpeg's output, where the actual error lives.
func tail(b []byte) string {
	const limit = 2000
	if len(b) <= limit {
		return string(b)
	}
	return "..." + string(b[len(b)-limit:])
}

package deck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/clipdeck/internal/types"
)

const (
	fieldSep   = ";"
	lineBreak  = "<br>"
	soundFmt   = "[sound:%s]"
	tagsHeader = "#tags:"
)

type Options struct {
	// Tags, when non-empty, are written as a leading "#tags:" line.
	Tags []string
}

// ClipFilename is the deck file name of the clip at ordinal.
func ClipFilename(basename string, ordinal int, ext string) string {
	return fmt.Sprintf("%s-%d-clip.%s", basename, ordinal, strings.TrimPrefix(ext, "."))
}

// StagingFilename is where a job's clip is cut before the deck is final.
func StagingFilename(basename string, ordinal int, ext string) string {
	return fmt.Sprintf(".%s-%d.part.%s", basename, ordinal, strings.TrimPrefix(ext, "."))
}

// ParseClipOrdinal reports the ordinal encoded in a clip file name produced
// by ClipFilename for basename.
func ParseClipOrdinal(basename, name string) (int, bool) {
	prefix := basename + "-"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(name, prefix)
	i := strings.Index(rest, "-clip.")
	if i <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:i])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Line renders one card in import format.
func Line(c types.Card) string {
	return fmt.Sprintf(soundFmt, c.ClipFilename) + fieldSep + oneLine(c.SourceText) + lineBreak + oneLine(c.TranslatedText)
}

// Write emits cards in the given order, one per line.
func Write(w io.Writer, cards []types.Card, opts Options) error {
	bw := bufio.NewWriter(w)
	if tags := joinTags(opts.Tags); tags != "" {
		if _, err := bw.WriteString(tagsHeader + tags + "\n"); err != nil {
			return err
		}
	}
	for _, c := range cards {
		if _, err := bw.WriteString(Line(c) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the deck atomically: a temp file in the target directory
// is renamed over path once complete.
func WriteFile(path string, cards []types.Card, opts Options) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create deck temp file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := Write(f, cards, opts); err != nil {
		_ = f.Close()
		return fmt.Errorf("write deck: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close deck: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename deck: %w", err)
	}
	return nil
}

func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}

func joinTags(tags []string) string {
	var out []string
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "_")
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

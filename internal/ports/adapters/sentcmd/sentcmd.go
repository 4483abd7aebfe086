package sentcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// Detector runs an external sentence splitter. The command reads the text on
// stdin and prints {"ends":[...]} where each entry is the exclusive end of a
// sentence counted in code points.
type Detector struct {
	argv []string
}

func New(argv []string) (*Detector, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("sentcmd: empty command")
	}
	return &Detector{argv: append([]string(nil), argv...)}, nil
}

func (d *Detector) Boundaries(ctx context.Context, text string) ([]int, error) {
	cmd := exec.CommandContext(ctx, d.argv[0], d.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sentence command %s: %w\n%s", d.argv[0], err, tail(stderr.String()))
	}

	var out struct {
		Ends *[]int `json:"ends"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("sentence command %s: decode output: %w", d.argv[0], err)
	}
	if out.Ends == nil {
		return nil, fmt.Errorf("sentence command %s: output has no \"ends\"", d.argv[0])
	}
	return RunesToBytes(text, *out.Ends), nil
}

// RunesToBytes converts code point offsets into byte offsets. Offsets past
// the end of text keep their excess so the caller can still reject them.
func RunesToBytes(text string, offsets []int) []int {
	out := make([]int, len(offsets))
	n := utf8.RuneCountInString(text)
	idx := make([]int, 0, n+1)
	for i := range text {
		idx = append(idx, i)
	}
	idx = append(idx, len(text))
	for i, o := range offsets {
		switch {
		case o < 0:
			out[i] = o
		case o > n:
			out[i] = len(text) + (o - n)
		default:
			out[i] = idx[o]
		}
	}
	return out
}

func tail(s string) string {
	const limit = 2000
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}

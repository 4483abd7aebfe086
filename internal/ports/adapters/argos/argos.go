package argos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Adapter translates offline through the argos-translate CLI.
type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "argos-translate"
	}
	return &Adapter{bin: binPath}
}

func (a *Adapter) Translate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	cmd := exec.CommandContext(ctx, a.bin, "--from-lang", from, "--to-lang", to, text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("argos-translate %s->%s: %w\n%s", from, to, err, strings.TrimSpace(stderr.String()))
	}
	out := strings.Join(strings.Fields(stdout.String()), " ")
	if out == "" {
		return "", errors.New("argos-translate: empty translation")
	}
	return out, nil
}

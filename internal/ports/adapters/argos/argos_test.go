package argos

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBin(t *testing.T, script string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "argos-translate")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranslate_PassesLanguagesAndText(t *testing.T) {
	bin := fakeBin(t, `echo "$2 $4 [$5]"; echo`)
	got, err := New(bin).Translate(context.Background(), " Hola a todos. ", "es", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got != "es en [Hola a todos.]" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTranslate_Failures(t *testing.T) {
	bin := fakeBin(t, `echo "no package installed" >&2; exit 1`)
	_, err := New(bin).Translate(context.Background(), "Hola", "es", "en")
	if err == nil || !strings.Contains(err.Error(), "no package installed") {
		t.Fatalf("expected stderr in error, got %v", err)
	}

	empty := fakeBin(t, `true`)
	if _, err := New(empty).Translate(context.Background(), "Hola", "es", "en"); err == nil {
		t.Fatalf("expected empty translation error")
	}
}

func TestTranslate_EmptyInput(t *testing.T) {
	got, err := New("/does/not/exist").Translate(context.Background(), "  ", "es", "en")
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/clipdeck/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
	// wordLevel asks whisper.cpp for one segment per word, which gives the
	// aligner finer timestamps to interpolate across.
	wordLevel bool
}

func New(binPath, modelPath, language string, wordLevel bool) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, language: language, wordLevel: wordLevel}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	if a.language != "" {
		args = append(args, "-l", a.language)
	}
	if a.wordLevel {
		args = append(args, "-ml", "1", "-sow")
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return ParseJSON(jb)
}

// LoadFile reads a transcript saved by an earlier run or by another
// whisper frontend.
func LoadFile(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	tr, err := ParseJSON(b)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return tr, nil
}

// SaveFile writes tr in the segments layout accepted by LoadFile.
func SaveFile(path string, tr types.Transcript) error {
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

type cppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// ParseJSON accepts both the openai-whisper layout (segments in seconds,
// optional words) and the whisper.cpp -oj layout (offsets in milliseconds).
func ParseJSON(b []byte) (types.Transcript, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return types.Transcript{}, err
	}

	var tr types.Transcript
	switch {
	case probe["segments"] != nil:
		if err := json.Unmarshal(b, &tr); err != nil {
			return types.Transcript{}, err
		}
	case probe["transcription"] != nil:
		var out cppOutput
		if err := json.Unmarshal(b, &out); err != nil {
			return types.Transcript{}, err
		}
		tr.Language = out.Result.Language
		for _, t := range out.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(t.Offsets.From) / 1000,
				End:   float64(t.Offsets.To) / 1000,
				Text:  t.Text,
			})
		}
	default:
		return types.Transcript{}, errors.New("unrecognized transcript layout: want \"segments\" or \"transcription\"")
	}

	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}

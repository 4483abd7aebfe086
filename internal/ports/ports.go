package ports

import (
	"context"
	"time"

	"github.com/forPelevin/clipdeck/internal/types"
)

type MediaTool interface {
	ExtractAudio(ctx context.Context, inMedia, outWav string) error
	CutAudio(ctx context.Context, inMedia string, start, end time.Duration, outPath string) error
	ProbeDuration(ctx context.Context, inMedia string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// SentenceDetector returns exclusive byte offsets into text marking the end
// of each sentence, in increasing order.
type SentenceDetector interface {
	Boundaries(ctx context.Context, text string) ([]int, error)
}

type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Fetcher downloads a remote source into dir and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string) (string, error)
}

package transcript

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/forPelevin/clipdeck/internal/types"
)

// IngestError reports a transcript that yields no usable segments.
type IngestError struct {
	Reason string
	Total  int
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: %s (%d fragments)", e.Reason, e.Total)
}

// Fragments picks the finest timing the transcript offers: word timestamps
// when every non-empty segment has them, segment timestamps otherwise.
func Fragments(tr types.Transcript) []types.Fragment {
	useWords := len(tr.Segments) > 0
	for _, s := range tr.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if len(s.Words) == 0 {
			useWords = false
			break
		}
	}

	var out []types.Fragment
	for _, s := range tr.Segments {
		if !useWords {
			out = append(out, types.Fragment{Start: s.Start, End: s.End, Text: s.Text})
			continue
		}
		for _, w := range s.Words {
			out = append(out, types.Fragment{Start: w.Start, End: w.End, Text: w.Word})
		}
	}
	return out
}

// Ingest normalizes raw fragments into ordered, non-overlapping segments.
// Overlapping starts are clamped to the previous end. A fragment left with
// no duration after clamping donates its text to a neighbour.
func Ingest(frags []types.Fragment) ([]types.TimedSegment, error) {
	if len(frags) == 0 {
		return nil, &IngestError{Reason: "empty transcription"}
	}

	out := make([]types.TimedSegment, 0, len(frags))
	pending := ""
	parsed := 0
	for _, f := range frags {
		if !validTime(f.Start) || !validTime(f.End) {
			continue
		}
		parsed++
		text := cleanText(f.Text)
		if text == "" {
			continue
		}

		start, end := dur(f.Start), dur(f.End)
		if n := len(out); n > 0 && start < out[n-1].End {
			start = out[n-1].End
		}
		if end <= start {
			if n := len(out); n > 0 {
				out[n-1].Text = joinText(out[n-1].Text, text)
			} else {
				pending = joinText(pending, text)
			}
			continue
		}

		if pending != "" {
			text = joinText(pending, text)
			pending = ""
		}
		out = append(out, types.TimedSegment{Start: start, End: end, Text: text})
	}

	if parsed == 0 {
		return nil, &IngestError{Reason: "no parsable fragments", Total: len(frags)}
	}
	if len(out) == 0 {
		return nil, &IngestError{Reason: "no timed text", Total: len(frags)}
	}
	return out, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " " + b
}

func validTime(sec float64) bool {
	return !math.IsNaN(sec) && !math.IsInf(sec, 0) && sec >= 0
}

func dur(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

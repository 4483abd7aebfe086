package align

import (
	"context"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/clipdeck/internal/ports"
	"github.com/forPelevin/clipdeck/internal/types"
)

// AlignmentError reports a boundary detector that broke its contract.
type AlignmentError struct {
	Offsets []int
	TextLen int
	Err     error
}

func (e *AlignmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("align: %v", e.Err)
	}
	return fmt.Sprintf("align: detector returned offsets %v for text of length %d", e.Offsets, e.TextLen)
}

func (e *AlignmentError) Unwrap() error { return e.Err }

type Aligner struct {
	Detector ports.SentenceDetector
	// MinSpan is the shortest span kept on its own; shorter spans are
	// folded into a neighbour when the gap and size limits allow.
	MinSpan time.Duration
	// MergeGap is the silence below which a short span may join a
	// neighbour. Zero disables re-merging.
	MergeGap time.Duration
	// MaxMerged caps the length of a re-merged span. Zero means no cap.
	MaxMerged time.Duration
}

// Align turns ordered segments into sentence spans.
func (a Aligner) Align(ctx context.Context, segs []types.TimedSegment) ([]types.SentenceSpan, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	l := newLayout(segs)

	offsets, err := a.Detector.Boundaries(ctx, l.text)
	if err != nil {
		return nil, &AlignmentError{TextLen: len(l.text), Err: fmt.Errorf("boundary detector: %w", err)}
	}
	if err := checkOffsets(offsets, len(l.text)); err != nil {
		return nil, &AlignmentError{Offsets: offsets, TextLen: len(l.text), Err: err}
	}
	if len(offsets) == 0 || offsets[len(offsets)-1] < len(l.text) {
		offsets = append(offsets, len(l.text))
	}

	spans := make([]types.SentenceSpan, 0, len(offsets))
	prev := 0
	for _, off := range offsets {
		lo, hi := trimRange(l.text, prev, off)
		prev = off
		if lo >= hi {
			continue
		}
		start, err := l.at(lo)
		if err != nil {
			return nil, &AlignmentError{Offsets: offsets, TextLen: len(l.text), Err: err}
		}
		end, err := l.at(hi)
		if err != nil {
			return nil, &AlignmentError{Offsets: offsets, TextLen: len(l.text), Err: err}
		}
		spans = append(spans, types.SentenceSpan{Start: start, End: end, SourceText: l.text[lo:hi]})
	}
	return a.remergeShort(spans), nil
}

func checkOffsets(offsets []int, n int) error {
	prev := 0
	for i, off := range offsets {
		if off <= 0 || off > n {
			return fmt.Errorf("offset %d at index %d outside (0, %d]", off, i, n)
		}
		if off <= prev {
			return fmt.Errorf("offset %d at index %d is not increasing", off, i)
		}
		prev = off
	}
	return nil
}

// trimRange narrows [lo, hi) of s to exclude surrounding whitespace.
func trimRange(s string, lo, hi int) (int, int) {
	for lo < hi {
		r, size := utf8.DecodeRuneInString(s[lo:hi])
		if !unicode.IsSpace(r) {
			break
		}
		lo += size
	}
	for hi > lo {
		r, size := utf8.DecodeLastRuneInString(s[lo:hi])
		if !unicode.IsSpace(r) {
			break
		}
		hi -= size
	}
	return lo, hi
}

// remergeShort folds spans shorter than MinSpan into the neighbour across the
// smaller gap. A neighbour qualifies only when the silence between them is
// below MergeGap and the merged span fits within MaxMerged; short spans with no
// qualifying neighbour are left for the scheduler to pad or drop.
func (a Aligner) remergeShort(spans []types.SentenceSpan) []types.SentenceSpan {
	if a.MinSpan <= 0 || a.MergeGap <= 0 {
		return spans
	}
	for len(spans) > 1 {
		i, j := a.nextMerge(spans)
		if i < 0 {
			break
		}
		lo, hi := i, j
		if j < i {
			lo, hi = j, i
		}
		merged := types.SentenceSpan{
			Start:      spans[lo].Start,
			End:        spans[hi].End,
			SourceText: spans[lo].SourceText + " " + spans[hi].SourceText,
		}
		spans = append(spans[:lo], append([]types.SentenceSpan{merged}, spans[hi+1:]...)...)
	}
	return spans
}

// nextMerge returns the shortest short span that has a qualifying neighbour,
// and that neighbour, or -1, -1.
func (a Aligner) nextMerge(spans []types.SentenceSpan) (int, int) {
	best, target := -1, -1
	for i, s := range spans {
		d := s.End - s.Start
		if d >= a.MinSpan {
			continue
		}
		if best >= 0 && d >= spans[best].End-spans[best].Start {
			continue
		}
		if j := a.neighbour(spans, i); j >= 0 {
			best, target = i, j
		}
	}
	return best, target
}

func (a Aligner) neighbour(spans []types.SentenceSpan, i int) int {
	j, gap := -1, time.Duration(0)
	if i > 0 && a.fits(spans[i-1], spans[i]) {
		j, gap = i-1, spans[i].Start-spans[i-1].End
	}
	if i+1 < len(spans) && a.fits(spans[i], spans[i+1]) {
		if g := spans[i+1].Start - spans[i].End; j < 0 || g < gap {
			j = i + 1
		}
	}
	return j
}

func (a Aligner) fits(left, right types.SentenceSpan) bool {
	if right.Start-left.End >= a.MergeGap {
		return false
	}
	return a.MaxMerged <= 0 || right.End-left.Start <= a.MaxMerged
}

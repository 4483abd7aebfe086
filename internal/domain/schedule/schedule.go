package schedule

import (
	"strings"
	"time"

	"github.com/forPelevin/clipdeck/internal/types"
)

const (
	DefaultPadding   = 150 * time.Millisecond
	DefaultMergeGap  = 250 * time.Millisecond
	DefaultMaxMerged = 8 * time.Second
	DefaultMinClip   = 250 * time.Millisecond
)

type Config struct {
	// Padding is added to both ends of every span.
	Padding time.Duration
	// MergeGap is the raw silence below which adjacent spans are joined.
	// Zero or negative disables merging.
	MergeGap time.Duration
	// MaxMerged caps the padded duration of a merged clip.
	MaxMerged time.Duration
	// MinClip is the shortest padded clip that is kept.
	MinClip time.Duration
}

func DefaultConfig() Config {
	return Config{
		Padding:   DefaultPadding,
		MergeGap:  DefaultMergeGap,
		MaxMerged: DefaultMaxMerged,
		MinClip:   DefaultMinClip,
	}
}

// Drop describes a span the scheduler discarded.
type Drop struct {
	Start  time.Duration
	End    time.Duration
	Text   string
	Reason string
}

type Scheduler struct {
	Config Config
	// OnDrop, if set, is called for every discarded span.
	OnDrop func(Drop)
}

// window keeps the raw sentence range next to the padded clip range; merge
// decisions use the raw silence, clip bounds use the padded range.
type window struct {
	rawStart, rawEnd time.Duration
	start, end       time.Duration
	text             string
}

// Schedule converts ordered sentence spans into clip jobs. mediaDuration
// clamps the upper bound when positive.
func (s Scheduler) Schedule(spans []types.SentenceSpan, mediaDuration time.Duration) []types.ClipJob {
	wins := s.pad(spans, mediaDuration)
	wins = s.merge(wins)

	jobs := make([]types.ClipJob, 0, len(wins))
	for _, w := range wins {
		text := strings.TrimSpace(w.text)
		switch {
		case text == "":
			s.drop(w, "empty text")
			continue
		case w.end-w.start < s.Config.MinClip || w.end <= w.start:
			s.drop(w, "shorter than minimum clip")
			continue
		}
		jobs = append(jobs, types.ClipJob{
			Ordinal:    len(jobs),
			Start:      w.start,
			End:        w.end,
			SourceText: text,
		})
	}
	return jobs
}

func (s Scheduler) pad(spans []types.SentenceSpan, mediaDuration time.Duration) []window {
	pad := s.Config.Padding
	if pad < 0 {
		pad = 0
	}
	out := make([]window, 0, len(spans))
	for i, sp := range spans {
		start, end := sp.Start, sp.End
		if mediaDuration > 0 && end > mediaDuration {
			end = mediaDuration
		}

		before := pad
		if i > 0 {
			if g := (sp.Start - spans[i-1].End) / 2; g < before {
				before = max(g, 0)
			}
		}
		after := pad
		if i < len(spans)-1 {
			// the odd nanosecond of an odd gap goes to this side; the
			// neighbour's half is rounded down so the two never overlap
			gap := spans[i+1].Start - sp.End
			if g := gap - gap/2; g < after {
				after = max(g, 0)
			}
		}

		start -= before
		end += after
		if start < 0 {
			start = 0
		}
		if mediaDuration > 0 && end > mediaDuration {
			end = mediaDuration
		}
		out = append(out, window{rawStart: sp.Start, rawEnd: sp.End, start: start, end: end, text: sp.SourceText})
	}
	return out
}

func (s Scheduler) merge(wins []window) []window {
	if s.Config.MergeGap <= 0 || len(wins) < 2 {
		return wins
	}
	out := make([]window, 0, len(wins))
	cur := wins[0]
	for _, next := range wins[1:] {
		gap := next.rawStart - cur.rawEnd
		if gap < s.Config.MergeGap && (s.Config.MaxMerged <= 0 || next.end-cur.start <= s.Config.MaxMerged) {
			cur.rawEnd = next.rawEnd
			cur.end = next.end
			cur.text = joinText(cur.text, next.text)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

func (s Scheduler) drop(w window, reason string) {
	if s.OnDrop == nil {
		return
	}
	s.OnDrop(Drop{Start: w.start, End: w.end, Text: w.text, Reason: reason})
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

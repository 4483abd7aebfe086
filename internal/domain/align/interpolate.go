package align

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forPelevin/clipdeck/internal/types"
)

// layout records where each segment's text lives inside the concatenated
// transcript. Segments are joined by a single space.
type layout struct {
	segs  []types.TimedSegment
	from  []int
	to    []int
	text  string
	runes []int
}

func newLayout(segs []types.TimedSegment) layout {
	l := layout{
		segs:  segs,
		from:  make([]int, len(segs)),
		to:    make([]int, len(segs)),
		runes: make([]int, len(segs)),
	}
	var b strings.Builder
	for i, s := range segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		l.from[i] = b.Len()
		b.WriteString(s.Text)
		l.to[i] = b.Len()
		l.runes[i] = utf8.RuneCountInString(s.Text)
	}
	l.text = b.String()
	return l
}

// at maps a byte offset in the concatenated text to a timestamp.
func (l layout) at(offset int) (time.Duration, error) {
	if offset < 0 || offset > len(l.text) {
		return 0, fmt.Errorf("offset %d outside text of length %d", offset, len(l.text))
	}
	for i := range l.segs {
		if offset > l.to[i] {
			continue
		}
		s := l.segs[i]
		if offset <= l.from[i] {
			return s.Start, nil
		}
		if l.runes[i] == 0 {
			return s.End, nil
		}
		pos := utf8.RuneCountInString(l.text[l.from[i]:offset])
		span := s.End - s.Start
		return s.Start + time.Duration(float64(span)*float64(pos)/float64(l.runes[i])), nil
	}
	return l.segs[len(l.segs)-1].End, nil
}

// OffsetToTime maps a byte offset into the space-joined text of segs to a
// timestamp by linear interpolation across the owning segment. An offset on
// a segment's first rune maps to its Start, one at its text end to its End.
func OffsetToTime(segs []types.TimedSegment, offset int) (time.Duration, error) {
	if len(segs) == 0 {
		return 0, fmt.Errorf("no segments")
	}
	return newLayout(segs).at(offset)
}

package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/clipdeck/internal/types"
)

// RenderBilingualSRT renders one cue per card on the source video timeline,
// source text above the translation. Cards must be in deck order.
func RenderBilingualSRT(cards []types.Card) string {
	var b strings.Builder
	for i, c := range cards {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, srtTime(c.Start), srtTime(c.End))
		b.WriteString(sanitize(c.SourceText))
		b.WriteString("\n")
		if tr := sanitize(c.TranslatedText); tr != "" {
			b.WriteString(tr)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func srtTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	milli := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hs, ms, s, milli)
}

// sanitize keeps a cue line on one line; a blank line would end the cue.
func sanitize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

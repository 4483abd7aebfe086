package punct

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations that end in a period without ending a sentence.
var abbreviations = map[string]struct{}{
	"sr": {}, "sra": {}, "srta": {}, "dr": {}, "dra": {}, "ud": {}, "uds": {}, "etc": {},
	"mr": {}, "mrs": {}, "ms": {}, "prof": {}, "st": {}, "vs": {},
	"av": {}, "pág": {}, "núm": {}, "e.g": {}, "i.e": {},
}

// Detector splits on terminal punctuation followed by whitespace and a
// token that does not start in lower case.
type Detector struct{}

func New() Detector { return Detector{} }

func (Detector) Boundaries(_ context.Context, text string) ([]int, error) {
	var out []int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		at := i
		i += size
		if !isTerminal(r) {
			continue
		}
		end := i
		// swallow repeated terminals and closing quotes/brackets
		for end < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[end:])
			if !isTerminal(r2) && !isCloser(r2) {
				break
			}
			end += s2
		}
		i = end
		if end == len(text) {
			out = append(out, end)
			break
		}
		if isCJKTerminal(r) {
			out = append(out, end)
			continue
		}
		next, ok := nextToken(text[end:])
		if !ok {
			// only whitespace left
			out = append(out, end)
			break
		}
		if next == "" {
			continue
		}
		if r == '.' && isAbbreviation(text[:at]) {
			continue
		}
		first, _ := utf8.DecodeRuneInString(next)
		if unicode.IsLower(first) {
			continue
		}
		out = append(out, end)
	}
	return out, nil
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCJKTerminal(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’', '」', '』':
		return true
	}
	return false
}

// nextToken returns the word after leading whitespace. It reports "" when
// no whitespace separates it (e.g. "3.5"), and ok=false when only
// whitespace remains.
func nextToken(s string) (string, bool) {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	if trimmed == "" {
		return "", false
	}
	if len(trimmed) == len(s) {
		return "", true
	}
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		return trimmed[:i], true
	}
	return trimmed, true
}

func isAbbreviation(before string) bool {
	i := strings.LastIndexFunc(before, unicode.IsSpace)
	word := strings.ToLower(before[i+1:])
	word = strings.TrimLeftFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
	_, ok := abbreviations[word]
	return ok
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forPelevin/clipdeck/internal/ports"
	"github.com/forPelevin/clipdeck/internal/types"
)

// OnFailure decides what happens to a card whose translation failed.
type OnFailure string

const (
	// OnFailurePlaceholder keeps the card with a marked translation.
	OnFailurePlaceholder OnFailure = "placeholder"
	// OnFailureOmit drops the card and its clip.
	OnFailureOmit OnFailure = "omit"
)

const DefaultPlaceholder = "[translation unavailable]"

// ParseOnFailure accepts the policy names used in config files.
func ParseOnFailure(s string) (OnFailure, error) {
	switch OnFailure(strings.ToLower(strings.TrimSpace(s))) {
	case "", OnFailurePlaceholder:
		return OnFailurePlaceholder, nil
	case OnFailureOmit:
		return OnFailureOmit, nil
	}
	return "", fmt.Errorf("unknown translation failure policy %q (want placeholder or omit)", s)
}

type translation struct {
	tr          ports.Translator
	from, to    string
	policy      OnFailure
	placeholder string
	log         *slog.Logger
}

// apply fills TranslatedText on every job and returns the jobs that remain
// together with the failures it recovered from. A cancelled ctx aborts.
func (t translation) apply(ctx context.Context, jobs []types.ClipJob) ([]types.ClipJob, []*TranslationFailure, error) {
	if t.tr == nil {
		return jobs, nil, nil
	}
	placeholder := t.placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	out := make([]types.ClipJob, 0, len(jobs))
	var failures []*TranslationFailure
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text, err := t.tr.Translate(ctx, job.SourceText, t.from, t.to)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty translation")
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			f := &TranslationFailure{Ordinal: job.Ordinal, SourceText: job.SourceText, Err: err}
			failures = append(failures, f)
			if t.policy == OnFailureOmit {
				t.log.Warn("card omitted: translation failed", "ordinal", job.Ordinal, "text", job.SourceText, "error", err)
				continue
			}
			t.log.Warn("translation failed, using placeholder", "ordinal", job.Ordinal, "text", job.SourceText, "error", err)
			text = placeholder
		}
		job.TranslatedText = strings.TrimSpace(text)
		out = append(out, job)
	}
	return out, failures, nil
}

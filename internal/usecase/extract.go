package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/forPelevin/clipdeck/internal/ports"
	"github.com/forPelevin/clipdeck/internal/types"
)

const (
	DefaultWorkers        = 4
	DefaultAttempts       = 3
	DefaultAttemptTimeout = 2 * time.Minute
	DefaultSettle         = 500 * time.Millisecond
)

// Extractor cuts one audio file per job with bounded retries and bounded
// concurrency.
type Extractor struct {
	Media    ports.MediaTool
	Workers  int
	Attempts int
	// AttemptTimeout bounds a single cut. Zero means no bound.
	AttemptTimeout time.Duration
	// Settle is the pause between attempts on the same job.
	Settle time.Duration
	Logger *slog.Logger
}

// ExtractResult is the outcome of one job. Path is the final clip path when
// Err is nil.
type ExtractResult struct {
	Job  types.ClipJob
	Path string
	Err  error
}

// PathFunc returns where a job is cut (staging) and where the finished clip
// lives (final).
type PathFunc func(job types.ClipJob) (staging, final string)

// Extract runs every job and returns results in job order. After ctx is
// cancelled no new job is started; cuts already running finish and the rest
// report ctx's error.
func (e Extractor) Extract(ctx context.Context, media string, jobs []types.ClipJob, paths PathFunc) []ExtractResult {
	results := make([]ExtractResult, len(jobs))
	sem := newSemaphore(e.workers())
	var wg sync.WaitGroup
	for i, job := range jobs {
		if err := sem.acquire(ctx); err != nil {
			for j := i; j < len(jobs); j++ {
				results[j] = ExtractResult{Job: jobs[j], Err: fmt.Errorf("clip %d not started: %w", jobs[j].Ordinal, err)}
			}
			break
		}
		wg.Add(1)
		go func(i int, job types.ClipJob) {
			defer wg.Done()
			defer sem.release()
			results[i] = e.extractOne(context.WithoutCancel(ctx), media, job, paths)
		}(i, job)
	}
	wg.Wait()
	return results
}

func (e Extractor) extractOne(ctx context.Context, media string, job types.ClipJob, paths PathFunc) ExtractResult {
	log := e.logger().With("ordinal", job.Ordinal)
	staging, final := paths(job)
	attempts := e.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = e.cutOnce(ctx, media, job, staging)
		if lastErr == nil {
			if err := os.Rename(staging, final); err != nil {
				lastErr = fmt.Errorf("publish clip: %w", err)
				break
			}
			log.Debug("clip extracted", "path", final, "duration", job.Duration(), "attempt", attempt)
			return ExtractResult{Job: job, Path: final}
		}
		_ = os.Remove(staging)
		if attempt < attempts {
			log.Warn("clip cut failed, retrying", "attempt", attempt, "error", lastErr)
			if e.Settle > 0 {
				time.Sleep(e.Settle)
			}
		}
	}

	_ = os.Remove(staging)
	if err := os.Remove(final); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("remove stale clip", "path", final, "error", err)
	}
	return ExtractResult{Job: job, Err: &ExtractionFailure{
		Ordinal:    job.Ordinal,
		SourceText: job.SourceText,
		Attempts:   attempts,
		Err:        lastErr,
	}}
}

func (e Extractor) cutOnce(ctx context.Context, media string, job types.ClipJob, out string) error {
	if e.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.AttemptTimeout)
		defer cancel()
	}
	if err := e.Media.CutAudio(ctx, media, job.Start, job.End, out); err != nil {
		return err
	}
	st, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("cut produced no file: %w", err)
	}
	if st.Size() == 0 {
		return errors.New("cut produced an empty file")
	}
	return nil
}

func (e Extractor) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return DefaultWorkers
}

func (e Extractor) attempts() int {
	if e.Attempts > 0 {
		return e.Attempts
	}
	return DefaultAttempts
}

func (e Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.DiscardHandler)
}

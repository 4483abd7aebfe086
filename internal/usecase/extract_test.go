package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forPelevin/clipdeck/internal/types"
)

// scriptedMedia runs cut for every CutAudio call.
type scriptedMedia struct {
	cut func(ctx context.Context, out string) error
}

func (m scriptedMedia) ExtractAudio(context.Context, string, string) error { return nil }

func (m scriptedMedia) CutAudio(ctx context.Context, _ string, _, _ time.Duration, out string) error {
	return m.cut(ctx, out)
}

func (m scriptedMedia) ProbeDuration(context.Context, string) (time.Duration, error) { return 0, nil }

func testJobs(n int) []types.ClipJob {
	out := make([]types.ClipJob, n)
	for i := range out {
		out[i] = types.ClipJob{
			Ordinal:    i,
			Start:      time.Duration(i) * time.Second,
			End:        time.Duration(i)*time.Second + 500*time.Millisecond,
			SourceText: "x",
		}
	}
	return out
}

func pathsIn(dir string) PathFunc {
	return func(j types.ClipJob) (string, string) {
		return filepath.Join(dir, ".c.part"+string(rune('a'+j.Ordinal))), filepath.Join(dir, "c-"+string(rune('a'+j.Ordinal)))
	}
}

func TestExtract_RetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	e := Extractor{
		Media: scriptedMedia{cut: func(_ context.Context, out string) error {
			if calls.Add(1) < 3 {
				_ = os.WriteFile(out, []byte("half"), 0o644)
				return errors.New("transient")
			}
			return os.WriteFile(out, []byte("ok"), 0o644)
		}},
		Attempts: 3,
	}
	res := e.Extract(context.Background(), "in.mp4", testJobs(1), pathsIn(dir))
	if res[0].Err != nil {
		t.Fatalf("unexpected error %v", res[0].Err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	b, err := os.ReadFile(res[0].Path)
	if err != nil || string(b) != "ok" {
		t.Fatalf("final clip = %q, %v", b, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the final clip, got %d entries", len(entries))
	}
}

func TestExtract_ExhaustedAttemptsRemovePartialOutput(t *testing.T) {
	dir := t.TempDir()
	staging, final := pathsIn(dir)(testJobs(1)[0])
	if err := os.WriteFile(final, []byte("from an earlier run"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := Extractor{
		Media: scriptedMedia{cut: func(_ context.Context, out string) error {
			return os.WriteFile(out, nil, 0o644)
		}},
		Attempts: 2,
	}
	res := e.Extract(context.Background(), "in.mp4", testJobs(1), pathsIn(dir))

	var ef *ExtractionFailure
	if !errors.As(res[0].Err, &ef) {
		t.Fatalf("expected ExtractionFailure, got %v", res[0].Err)
	}
	if ef.Attempts != 2 || ef.Ordinal != 0 {
		t.Fatalf("unexpected failure %+v", ef)
	}
	for _, p := range []string{staging, final} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed, stat err=%v", p, err)
		}
	}
}

func TestExtract_BoundsConcurrency(t *testing.T) {
	dir := t.TempDir()
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	e := Extractor{
		Media: scriptedMedia{cut: func(_ context.Context, out string) error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return os.WriteFile(out, []byte("ok"), 0o644)
		}},
		Workers: 2,
	}
	res := e.Extract(context.Background(), "in.mp4", testJobs(8), pathsIn(dir))
	for i, r := range res {
		if r.Err != nil {
			t.Fatalf("job %d: %v", i, r.Err)
		}
		if r.Job.Ordinal != i {
			t.Fatalf("results out of order at %d", i)
		}
	}
	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent cuts, saw %d", peak)
	}
}

func TestExtract_CancelledContextStartsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	e := Extractor{Media: scriptedMedia{cut: func(context.Context, string) error {
		calls.Add(1)
		return nil
	}}}
	res := e.Extract(ctx, "in.mp4", testJobs(3), pathsIn(t.TempDir()))
	if calls.Load() != 0 {
		t.Fatalf("expected no cuts, got %d", calls.Load())
	}
	for _, r := range res {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("expected cancellation for job %d, got %v", r.Job.Ordinal, r.Err)
		}
	}
}

func TestExtract_InFlightCutSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	e := Extractor{
		Media: scriptedMedia{cut: func(cctx context.Context, out string) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			if err := cctx.Err(); err != nil {
				return err
			}
			return os.WriteFile(out, []byte("ok"), 0o644)
		}},
		Workers:  1,
		Attempts: 1,
	}
	go func() {
		<-started
		cancel()
	}()
	res := e.Extract(ctx, "in.mp4", testJobs(2), pathsIn(t.TempDir()))
	if res[0].Err != nil {
		t.Fatalf("in-flight cut should finish, got %v", res[0].Err)
	}
	if !errors.Is(res[1].Err, context.Canceled) {
		t.Fatalf("second job should not start, got %v", res[1].Err)
	}
}

func TestExtract_AttemptTimeout(t *testing.T) {
	e := Extractor{
		Media: scriptedMedia{cut: func(cctx context.Context, _ string) error {
			<-cctx.Done()
			return cctx.Err()
		}},
		Attempts:       1,
		AttemptTimeout: 20 * time.Millisecond,
	}
	res := e.Extract(context.Background(), "in.mp4", testJobs(1), pathsIn(t.TempDir()))
	if !errors.Is(res[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected attempt deadline, got %v", res[0].Err)
	}
}

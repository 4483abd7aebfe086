package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/clipdeck/internal/domain/align"
	"github.com/forPelevin/clipdeck/internal/domain/deck"
	"github.com/forPelevin/clipdeck/internal/domain/schedule"
	"github.com/forPelevin/clipdeck/internal/domain/subtitles"
	"github.com/forPelevin/clipdeck/internal/domain/transcript"
	"github.com/forPelevin/clipdeck/internal/ports"
	"github.com/forPelevin/clipdeck/internal/types"
)

type Deps struct {
	Media    ports.MediaTool
	ASR      ports.ASR
	Detector ports.SentenceDetector
	// Translator may be nil, in which case cards carry no translation.
	Translator ports.Translator
	Logger     *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return Usecase{d: d}
}

type Input struct {
	Media    string
	Basename string
	CacheDir string
	OutDir   string
	// ClipExt is the clip container extension without the dot.
	ClipExt string

	// Transcript skips audio extraction and recognition when set.
	Transcript *types.Transcript
	// SaveTranscript, when set, receives the recognizer output.
	SaveTranscript func(types.Transcript) error

	From, To    string
	OnFailure   OnFailure
	Placeholder string

	Schedule  schedule.Config
	Extractor Extractor

	Tags []string
	SRT  bool
}

type Result struct {
	DeckPath string
	SRTPath  string
	Cards    []types.Card

	Spans               int
	Jobs                int
	Dropped             []schedule.Drop
	TranslationFailures []*TranslationFailure
	ExtractionFailures  []*ExtractionFailure
	Elapsed             time.Duration
}

// Run turns one video into a deck. Ingest and alignment errors abort before
// any clip is written; per-clip translation and extraction errors drop or mark
// the affected card and the run continues.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	log := u.d.Logger
	if in.Basename == "" {
		return Result{}, errors.New("basename is empty")
	}
	if in.ClipExt == "" {
		in.ClipExt = "mp3"
	}

	tr, err := u.transcript(ctx, in)
	if err != nil {
		return Result{}, err
	}

	segs, err := transcript.Ingest(transcript.Fragments(tr))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", in.Media, err)
	}
	log.Info("transcript ingested", "segments", len(segs))

	aligner := align.Aligner{
		Detector:  u.d.Detector,
		MinSpan:   in.Schedule.MinClip,
		MergeGap:  in.Schedule.MergeGap,
		MaxMerged: in.Schedule.MaxMerged,
	}
	spans, err := aligner.Align(ctx, segs)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", in.Media, err)
	}
	log.Info("sentences aligned", "spans", len(spans))

	mediaDuration, err := u.d.Media.ProbeDuration(ctx, in.Media)
	if err != nil {
		log.Warn("media duration unknown, clip ends are not clamped", "error", err)
		mediaDuration = 0
	}

	res := Result{Spans: len(spans)}
	sched := schedule.Scheduler{
		Config: in.Schedule,
		OnDrop: func(d schedule.Drop) {
			res.Dropped = append(res.Dropped, d)
			log.Info("span dropped", "start", d.Start, "end", d.End, "text", d.Text, "reason", d.Reason)
		},
	}
	jobs := sched.Schedule(spans, mediaDuration)
	res.Jobs = len(jobs)
	log.Info("clips scheduled", "jobs", len(jobs), "dropped", len(res.Dropped))

	tl := translation{
		tr:          u.d.Translator,
		from:        in.From,
		to:          in.To,
		policy:      in.OnFailure,
		placeholder: in.Placeholder,
		log:         log,
	}
	jobs, res.TranslationFailures, err = tl.apply(ctx, jobs)
	if err != nil {
		return Result{}, fmt.Errorf("translate: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return Result{}, err
	}

	ex := in.Extractor
	ex.Media = u.d.Media
	if ex.Logger == nil {
		ex.Logger = log
	}
	results := ex.Extract(ctx, in.Media, jobs, func(j types.ClipJob) (string, string) {
		return filepath.Join(in.OutDir, deck.StagingFilename(in.Basename, j.Ordinal, in.ClipExt)),
			filepath.Join(in.OutDir, deck.ClipFilename(in.Basename, j.Ordinal, in.ClipExt))
	})
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("extraction interrupted, deck not written: %w", err)
	}

	keep := map[string]bool{}
	for _, r := range results {
		if r.Err != nil {
			var ef *ExtractionFailure
			if errors.As(r.Err, &ef) {
				res.ExtractionFailures = append(res.ExtractionFailures, ef)
			}
			log.Error("clip excluded", "ordinal", r.Job.Ordinal, "text", r.Job.SourceText, "error", r.Err)
			continue
		}
		name := filepath.Base(r.Path)
		keep[name] = true
		res.Cards = append(res.Cards, types.Card{
			Ordinal:        len(res.Cards),
			ClipFilename:   name,
			SourceText:     r.Job.SourceText,
			TranslatedText: r.Job.TranslatedText,
			Start:          r.Job.Start,
			End:            r.Job.End,
		})
	}
	if len(res.Cards) == 0 {
		return Result{}, fmt.Errorf("%s: %w (%d scheduled)", in.Media, ErrNoCards, len(jobs))
	}

	if err := removeStaleClips(in.OutDir, in.Basename, keep, log); err != nil {
		return Result{}, err
	}

	res.DeckPath = filepath.Join(in.OutDir, in.Basename+".txt")
	if err := deck.WriteFile(res.DeckPath, res.Cards, deck.Options{Tags: in.Tags}); err != nil {
		return Result{}, err
	}
	log.Info("deck written", "path", res.DeckPath, "cards", len(res.Cards))

	if in.SRT {
		res.SRTPath = filepath.Join(in.OutDir, in.Basename+".srt")
		if err := writeFile(res.SRTPath, []byte(subtitles.RenderBilingualSRT(res.Cards))); err != nil {
			return Result{}, err
		}
	}
	res.Elapsed = time.Since(started)
	return res, nil
}

func (u Usecase) transcript(ctx context.Context, in Input) (types.Transcript, error) {
	if in.Transcript != nil {
		return *in.Transcript, nil
	}
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return types.Transcript{}, err
	}
	wav := filepath.Join(in.CacheDir, "audio.wav")
	u.d.Logger.Info("extracting audio", "wav", wav)
	if err := u.d.Media.ExtractAudio(ctx, in.Media, wav); err != nil {
		return types.Transcript{}, err
	}
	u.d.Logger.Info("transcribing")
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return types.Transcript{}, err
	}
	if in.SaveTranscript != nil {
		if err := in.SaveTranscript(tr); err != nil {
			return types.Transcript{}, fmt.Errorf("save transcript: %w", err)
		}
	}
	return tr, nil
}

// removeStaleClips deletes clips of basename that are not part of this deck,
// such as clips from a longer earlier run.
func removeStaleClips(dir, basename string, keep map[string]bool, log *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || keep[name] || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := deck.ParseClipOrdinal(basename, name); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale clip: %w", err)
		}
		log.Debug("stale clip removed", "file", name)
	}
	return nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}

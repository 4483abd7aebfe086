package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/clipdeck/internal/config"
	"github.com/forPelevin/clipdeck/internal/domain/schedule"
	"github.com/forPelevin/clipdeck/internal/ports"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/argos"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/punct"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/sentcmd"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/sqlitecache"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/clipdeck/internal/types"
	"github.com/forPelevin/clipdeck/internal/usecase"
)

// ErrLocked is returned when another run holds the output lock for the same
// basename.
var ErrLocked = errors.New("another run is writing this deck")

type Config struct {
	// Input is a local media path or an http(s) URL.
	Input string
	// Name overrides the basename derived from Input.
	Name string
	// Transcript loads a saved transcript instead of running recognition.
	Transcript string
	// SaveTranscript writes the recognizer output to this path.
	SaveTranscript string

	Settings *config.Config
	Logger   *slog.Logger
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("input is empty")
	}
	if c.Settings == nil {
		return errors.New("settings are required")
	}
	if !ytdlp.IsURL(c.Input) {
		if _, err := os.Stat(c.Input); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.Transcript != "" {
		if _, err := os.Stat(c.Transcript); err != nil {
			return fmt.Errorf("stat transcript: %w", err)
		}
		return nil
	}
	if c.Settings.Whisper.Model == "" {
		return errors.New("whisper model path is required")
	}
	return nil
}

func Run(ctx context.Context, cfg Config) (usecase.Result, error) {
	if err := cfg.Validate(); err != nil {
		return usecase.Result{}, err
	}
	s := cfg.Settings
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("run_id", uuid.NewString(), "video", cfg.Input)

	// adapters
	media := ffmpeg.New(s.Media.FFmpeg, s.Media.FFprobe)
	asr := whispercpp.New(s.Whisper.Bin, s.Whisper.Model, s.Translation.From, s.Whisper.WordLevel)
	detector, err := NewDetector(s.Boundary)
	if err != nil {
		return usecase.Result{}, err
	}
	translator, closeTranslator, err := NewTranslator(s, log)
	if err != nil {
		return usecase.Result{}, err
	}
	defer closeTranslator()

	input, err := resolveInput(ctx, ytdlp.New(s.Media.YtDlp), cfg.Input, filepath.Join(s.Paths.CacheDir, "downloads"), log)
	if err != nil {
		return usecase.Result{}, err
	}

	policy, err := usecase.ParseOnFailure(s.Translation.OnFailure)
	if err != nil {
		return usecase.Result{}, err
	}

	base := Basename(cfg.Name, input)
	cacheDir := filepath.Join(s.Paths.CacheDir, "runs", hash(input))
	log.Debug("preparing workspace", "cache", cacheDir, "basename", base)

	outDir := s.Paths.OutDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return usecase.Result{}, err
	}
	unlock, err := lockOutput(outDir, base)
	if err != nil {
		return usecase.Result{}, err
	}
	defer unlock()

	in := usecase.Input{
		Media:       input,
		Basename:    base,
		CacheDir:    cacheDir,
		OutDir:      outDir,
		ClipExt:     s.Media.ClipExt,
		From:        s.Translation.From,
		To:          s.Translation.To,
		OnFailure:   policy,
		Placeholder: s.Translation.Placeholder,
		Schedule:    ScheduleConfig(s.Schedule),
		Extractor: usecase.Extractor{
			Workers:        s.Extract.Workers,
			Attempts:       s.Extract.Attempts,
			AttemptTimeout: time.Duration(s.Extract.AttemptTimeoutSeconds) * time.Second,
			Settle:         time.Duration(s.Extract.SettleMS) * time.Millisecond,
		},
		Tags: s.Deck.Tags,
		SRT:  s.Deck.SRT,
	}
	if cfg.Transcript != "" {
		tr, err := whispercpp.LoadFile(cfg.Transcript)
		if err != nil {
			return usecase.Result{}, err
		}
		log.Info("transcript loaded", "path", cfg.Transcript, "segments", len(tr.Segments))
		in.Transcript = &tr
	}
	if cfg.SaveTranscript != "" {
		path := cfg.SaveTranscript
		in.SaveTranscript = func(tr types.Transcript) error {
			log.Info("transcript saved", "path", path)
			return whispercpp.SaveFile(path, tr)
		}
	}

	uc := usecase.New(usecase.Deps{
		Media:      media,
		ASR:        asr,
		Detector:   detector,
		Translator: translator,
		Logger:     log,
	})
	res, err := uc.Run(ctx, in)
	if err != nil {
		return usecase.Result{}, err
	}
	log.Info("deck ready",
		"cards", len(res.Cards),
		"jobs", res.Jobs,
		"failed", len(res.ExtractionFailures),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// resolveInput downloads URL inputs into dir and makes local paths absolute.
func resolveInput(ctx context.Context, fetcher ports.Fetcher, input, dir string, log *slog.Logger) (string, error) {
	if !ytdlp.IsURL(input) {
		return filepath.Abs(input)
	}
	log.Info("downloading", "url", input)
	return fetcher.Fetch(ctx, input, dir)
}

// NewDetector builds the configured sentence boundary detector.
func NewDetector(b config.Boundary) (ports.SentenceDetector, error) {
	switch b.Detector {
	case "", "punct":
		return punct.New(), nil
	case "command":
		return sentcmd.New(b.Command)
	}
	return nil, fmt.Errorf("unknown boundary detector %q", b.Detector)
}

// NewTranslator builds the configured translator, wrapped in the sqlite cache
// when enabled. The returned func releases the cache.
func NewTranslator(s *config.Config, log *slog.Logger) (ports.Translator, func(), error) {
	noop := func() {}
	var next ports.Translator
	switch s.Translation.Provider {
	case "none":
		return nil, noop, nil
	case "argos":
		next = argos.New(s.Translation.ArgosBin)
	case "openrouter", "":
		next = openrouter.New(s.OpenRouter.APIKey, s.OpenRouter.Model, s.OpenRouter.BaseURL)
	default:
		return nil, noop, fmt.Errorf("unknown translation provider %q", s.Translation.Provider)
	}
	if !s.Translation.Cache {
		return next, noop, nil
	}
	store, err := sqlitecache.Open(filepath.Join(s.Paths.CacheDir, "translations.db"))
	if err != nil {
		return nil, noop, err
	}
	return sqlitecache.Wrap(store, providerKey(s), next).WithLogger(log), func() { _ = store.Close() }, nil
}

// providerKey separates cache entries of different models.
func providerKey(s *config.Config) string {
	if s.Translation.Provider == "openrouter" || s.Translation.Provider == "" {
		return "openrouter:" + s.OpenRouter.Model
	}
	return s.Translation.Provider
}

func ScheduleConfig(s config.Schedule) schedule.Config {
	return schedule.Config{
		Padding:   time.Duration(s.PaddingMS) * time.Millisecond,
		MergeGap:  time.Duration(s.MergeGapMS) * time.Millisecond,
		MaxMerged: time.Duration(s.MaxMergedMS) * time.Millisecond,
		MinClip:   time.Duration(s.MinClipMS) * time.Millisecond,
	}
}

// Basename is the file name stem shared by a video's clips and deck.
func Basename(name, input string) string {
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	return name
}

func lockOutput(outDir, base string) (func(), error) {
	lock := flock.New(filepath.Join(outDir, "."+base+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", base, outDir, ErrLocked)
	}
	return func() { _ = lock.Unlock() }, nil
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.MediaTool        = (*ffmpeg.Adapter)(nil)
	_ ports.ASR              = (*whispercpp.Adapter)(nil)
	_ ports.SentenceDetector = punct.Detector{}
	_ ports.SentenceDetector = (*sentcmd.Detector)(nil)
	_ ports.Translator       = (*openrouter.Adapter)(nil)
	_ ports.Translator       = (*argos.Adapter)(nil)
	_ ports.Translator       = (*sqlitecache.Translator)(nil)
	_ ports.Fetcher          = (*ytdlp.Adapter)(nil)
)

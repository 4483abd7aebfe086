package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultOutDir      = "out"
	defaultClipExt     = "mp3"
	defaultWhisperBin  = ".cache/bin/whisper.cpp"
	defaultModel       = ".cache/models/ggml-base.bin"
	defaultProvider    = "openrouter"
	defaultOnFailure   = "placeholder"
	defaultPlaceholder = "[translation unavailable]"
	defaultORModel     = "google/gemini-2.5-flash"
	defaultORBaseURL   = "https://openrouter.ai"
	defaultDetector    = "punct"
)

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	return Config{
		Paths: Paths{
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir(),
		},
		Media: Media{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
			ClipExt: defaultClipExt,
		},
		Whisper: Whisper{
			Bin:   defaultWhisperBin,
			Model: defaultModel,
		},
		Boundary: Boundary{Detector: defaultDetector},
		Translation: Translation{
			Provider:    defaultProvider,
			From:        "es",
			To:          "en",
			OnFailure:   defaultOnFailure,
			Placeholder: defaultPlaceholder,
			Cache:       true,
			ArgosBin:    "argos-translate",
		},
		OpenRouter: OpenRouter{
			Model:   defaultORModel,
			BaseURL: defaultORBaseURL,
		},
		Schedule: Schedule{
			PaddingMS:   150,
			MergeGapMS:  250,
			MaxMergedMS: 8000,
			MinClipMS:   250,
		},
		Extract: Extract{
			Workers:               4,
			Attempts:              3,
			AttemptTimeoutSeconds: 120,
			SettleMS:              500,
		},
		Watch: Watch{
			Concurrency: 1,
			SettleMS:    500,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "clipdeck")
	}
	return "~/.cache/clipdeck"
}

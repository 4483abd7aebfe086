package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Paths contains output and cache directories.
type Paths struct {
	OutDir   string `toml:"out_dir" yaml:"out_dir"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
}

// Media contains external media tools and the clip container.
type Media struct {
	FFmpeg  string `toml:"ffmpeg" yaml:"ffmpeg"`
	FFprobe string `toml:"ffprobe" yaml:"ffprobe"`
	YtDlp   string `toml:"yt_dlp" yaml:"yt_dlp"`
	ClipExt string `toml:"clip_ext" yaml:"clip_ext"`
}

// Whisper contains the speech recognizer settings.
type Whisper struct {
	Bin       string `toml:"bin" yaml:"bin"`
	Model     string `toml:"model" yaml:"model"`
	WordLevel bool   `toml:"word_level" yaml:"word_level"`
}

// Boundary selects the sentence boundary detector.
type Boundary struct {
	Detector string   `toml:"detector" yaml:"detector"`
	Command  []string `toml:"command" yaml:"command"`
}

// Translation contains the provider choice and the failure policy.
type Translation struct {
	Provider    string `toml:"provider" yaml:"provider"`
	From        string `toml:"from" yaml:"from"`
	To          string `toml:"to" yaml:"to"`
	OnFailure   string `toml:"on_failure" yaml:"on_failure"`
	Placeholder string `toml:"placeholder" yaml:"placeholder"`
	Cache       bool   `toml:"cache" yaml:"cache"`
	ArgosBin    string `toml:"argos_bin" yaml:"argos_bin"`
}

// OpenRouter contains chat completion API settings.
type OpenRouter struct {
	APIKey       string   `toml:"api_key" yaml:"api_key"`
	Model        string   `toml:"model" yaml:"model"`
	BaseURL      string   `toml:"base_url" yaml:"base_url"`
	AllowedHosts []string `toml:"allowed_hosts" yaml:"allowed_hosts"`
}

// Schedule contains clip padding and merge thresholds in milliseconds.
type Schedule struct {
	PaddingMS   int `toml:"padding_ms" yaml:"padding_ms"`
	MergeGapMS  int `toml:"merge_gap_ms" yaml:"merge_gap_ms"`
	MaxMergedMS int `toml:"max_merged_ms" yaml:"max_merged_ms"`
	MinClipMS   int `toml:"min_clip_ms" yaml:"min_clip_ms"`
}

// Extract contains clip cutting limits.
type Extract struct {
	Workers               int `toml:"workers" yaml:"workers"`
	Attempts              int `toml:"attempts" yaml:"attempts"`
	AttemptTimeoutSeconds int `toml:"attempt_timeout_seconds" yaml:"attempt_timeout_seconds"`
	SettleMS              int `toml:"settle_ms" yaml:"settle_ms"`
}

// Deck contains import file options.
type Deck struct {
	Tags []string `toml:"tags" yaml:"tags"`
	SRT  bool     `toml:"srt" yaml:"srt"`
}

// Watch contains folder watching options.
type Watch struct {
	Concurrency int `toml:"concurrency" yaml:"concurrency"`
	SettleMS    int `toml:"settle_ms" yaml:"settle_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for clipdeck.
type Config struct {
	Paths       Paths       `toml:"paths" yaml:"paths"`
	Media       Media       `toml:"media" yaml:"media"`
	Whisper     Whisper     `toml:"whisper" yaml:"whisper"`
	Boundary    Boundary    `toml:"boundary" yaml:"boundary"`
	Translation Translation `toml:"translation" yaml:"translation"`
	OpenRouter  OpenRouter  `toml:"openrouter" yaml:"openrouter"`
	Schedule    Schedule    `toml:"schedule" yaml:"schedule"`
	Extract     Extract     `toml:"extract" yaml:"extract"`
	Deck        Deck        `toml:"deck" yaml:"deck"`
	Watch       Watch       `toml:"watch" yaml:"watch"`
	Logging     Logging     `toml:"logging" yaml:"logging"`
}

// Read loads and normalizes the configuration without validating it, so
// callers can layer flag overrides first. It returns the resolved path and
// whether a file was found there.
func Read(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		dec := toml.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CLIPDECK_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	for _, name := range []string{"clipdeck.toml", "clipdeck.yaml", "clipdeck.yml"} {
		projectPath, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipdeck/config.toml")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for flag values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

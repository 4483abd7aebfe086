package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"

	"github.com/forPelevin/clipdeck/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipdeck/internal/ports/adapters/openrouter"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateBoundary(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	if c.Watch.Concurrency < 1 {
		return errors.New("watch.concurrency must be at least 1")
	}
	return c.validateLogging()
}

func (c *Config) validateMedia() error {
	if !ffmpeg.SupportedExt(c.Media.ClipExt) {
		return fmt.Errorf("media.clip_ext %q is not supported (mp3, m4a, mp4, aac, ogg, opus, wav)", c.Media.ClipExt)
	}
	return nil
}

func (c *Config) validateBoundary() error {
	switch c.Boundary.Detector {
	case "punct":
		return nil
	case "command":
		if len(c.Boundary.Command) == 0 {
			return errors.New("boundary.command is required when boundary.detector is \"command\"")
		}
		return nil
	}
	return fmt.Errorf("boundary.detector %q must be punct or command", c.Boundary.Detector)
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	if err := validateTag("translation.from", t.From); err != nil {
		return err
	}
	switch t.OnFailure {
	case "placeholder", "omit":
	default:
		return fmt.Errorf("translation.on_failure %q must be placeholder or omit", t.OnFailure)
	}
	switch t.Provider {
	case "none":
		return nil
	case "argos":
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return errors.New("openrouter.api_key is required (set OPENROUTER_API_KEY in .env) or use translation.provider = \"none\"")
		}
		if err := openrouter.ValidateBaseURL(c.OpenRouter.BaseURL, c.OpenRouter.AllowedHosts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("translation.provider %q must be openrouter, argos or none", t.Provider)
	}
	return validateTag("translation.to", t.To)
}

func validateTag(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("%s %q: %w", key, value, err)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	s := c.Schedule
	if s.PaddingMS < 0 || s.MinClipMS < 0 {
		return errors.New("schedule.padding_ms and schedule.min_clip_ms must not be negative")
	}
	if s.MaxMergedMS <= 0 {
		return errors.New("schedule.max_merged_ms must be positive")
	}
	return nil
}

func (c *Config) validateExtract() error {
	e := c.Extract
	if e.Workers < 1 {
		return errors.New("extract.workers must be at least 1")
	}
	if e.Attempts < 1 {
		return errors.New("extract.attempts must be at least 1")
	}
	if e.AttemptTimeoutSeconds < 0 || e.SettleMS < 0 {
		return errors.New("extract.attempt_timeout_seconds and extract.settle_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

// Normalize applies defaults and canonical forms. Read calls it;
// callers that change fields afterwards call it again.
func (c *Config) Normalize() error {
	return c.normalize()
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeTranslation()
	c.normalizeOpenRouter()
	c.normalizeLogging()
	c.Boundary.Detector = strings.ToLower(strings.TrimSpace(c.Boundary.Detector))
	if c.Boundary.Detector == "" {
		c.Boundary.Detector = defaultDetector
	}
	c.Deck.Tags = trimAll(c.Deck.Tags)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if c.Paths.OutDir, err = expandPath(c.Paths.OutDir); err != nil {
		return fmt.Errorf("paths.out_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.ClipExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Media.ClipExt), "."))
	if c.Media.ClipExt == "" {
		c.Media.ClipExt = defaultClipExt
	}
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = defaultProvider
	}
	t.OnFailure = strings.ToLower(strings.TrimSpace(t.OnFailure))
	if t.OnFailure == "" {
		t.OnFailure = defaultOnFailure
	}
	if strings.TrimSpace(t.Placeholder) == "" {
		t.Placeholder = defaultPlaceholder
	}
	t.From = strings.TrimSpace(t.From)
	t.To = strings.TrimSpace(t.To)
}

func (c *Config) normalizeOpenRouter() {
	o := &c.OpenRouter
	if o.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			o.APIKey = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("OPENROUTER_MODEL"); ok && strings.TrimSpace(value) != "" {
		o.Model = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENROUTER_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		o.BaseURL = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok && len(o.AllowedHosts) == 0 {
		o.AllowedHosts = trimAll(strings.Split(value, ","))
	}
	if strings.TrimSpace(o.Model) == "" {
		o.Model = defaultORModel
	}
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = defaultORBaseURL
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

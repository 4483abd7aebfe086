package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client

	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
}

const (
	requestTimeout = 90 * time.Second
	defaultModel   = "google/gemini-2.5-flash"
)

// statusError is an HTTP failure; 429 and 5xx are worth retrying.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openrouter status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

type Option func(*Adapter)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// WithRetry overrides the attempt count and the base backoff between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(a *Adapter) {
		a.attempts = attempts
		a.backoff = backoff
	}
}

func New(apiKey, model, baseURL string, opts ...Option) *Adapter {
	if model == "" {
		model = defaultModel
	}
	baseURL = normalizeBaseURL(baseURL)
	a := &Adapter{
		key:      apiKey,
		model:    model,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 5 * time.Minute},
		attempts: 3,
		backoff:  time.Second,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.attempts < 1 {
		a.attempts = 1
	}
	return a
}

// Translate asks the model for a faithful translation of one sentence.
func (a *Adapter) Translate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if a.key == "" {
		return "", errors.New("openrouter: api key required")
	}

	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		out, err := a.translateOnce(ctx, text, from, to)
		if err == nil {
			return out, nil
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return "", err
		}
		if attempt == a.attempts {
			break
		}
		if err := a.sleep(ctx, a.backoff*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("openrouter: %d attempts: %w", a.attempts, lastErr)
}

func (a *Adapter) translateOnce(ctx context.Context, text, from, to string) (string, error) {
	payload := map[string]any{
		"model":       a.model,
		"stream":      false,
		"temperature": 0,
		"messages": []map[string]any{
			{"role": "system", "content": buildPrompt(from, to)},
			{"role": "user", "content": text},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "clipdeck_translate",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"translation": map[string]any{"type": "string"},
					},
					"required": []string{"translation"},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", errors.New(redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return "", &statusError{code: resp.StatusCode, body: truncate(redactSecrets(string(rb), a.key), 400)}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return "", err
	}
	var out struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return "", fmt.Errorf("openrouter: parse translation: %w", err)
	}
	tr := strings.TrimSpace(out.Translation)
	if tr == "" {
		return "", errors.New("openrouter: empty translation")
	}
	return tr, nil
}

func buildPrompt(from, to string) string {
	return "You translate single sentences from a " + languageName(from) + " video transcript into " +
		languageName(to) + " for language-learning flashcards. " +
		"Translate faithfully and naturally. Do not explain, do not add notes, keep names unchanged. " +
		`Return strictly valid JSON (no markdown, no code fences): {"translation": "..."}`
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

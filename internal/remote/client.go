// Package remote implements the retrying, rate-limit-aware client for
// the external translate/summarize capability. The result cache is
// consulted before any network call.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/pageglot/pageglot/internal/cache"
	"github.com/pageglot/pageglot/pkg/log"
)

const (
	actionTranslate = "translate"
	actionSummarize = "summarize"

	// textSeparator joins array input into one call and is split back
	// on response. Chosen so it survives translation untouched.
	textSeparator = "\n@@@@\n"

	defaultCallTimeout    = 45 * time.Second
	defaultRateLimitReset = 60 * time.Second
)

// Config is the remote client configuration.
type Config struct {
	APIURL      string
	APIKey      string
	CallTimeout time.Duration
	Policy      RetryPolicy
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api url is required")
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = defaultCallTimeout
	}
	if c.Policy.MaxAttempts <= 0 {
		c.Policy = DefaultRetryPolicy()
	}
	return nil
}

type apiRequest struct {
	Action         string `json:"action"`
	Content        string `json:"content"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage"`
	PageURL        string `json:"pageUrl,omitempty"`
}

type apiResponse struct {
	Success      bool              `json:"success"`
	Translations map[string]string `json:"translations,omitempty"`
	Summary      *cache.Summary    `json:"summary,omitempty"`
	Error        string            `json:"error,omitempty"`
	ResetAt      int64             `json:"resetAt,omitempty"`
}

// Client issues translate/summarize calls with bounded retries,
// exponential backoff, per-endpoint rate-limit windows and a circuit
// breaker around the transport.
type Client struct {
	config     Config
	httpClient *http.Client
	results    *cache.Cache
	limits     *rateLimiter
	group      singleflight.Group
	breaker    *gobreaker.CircuitBreaker

	// sleep is the backoff suspension point, replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client writing through the given result cache,
// which may be nil to disable caching.
func NewClient(config Config, results *cache.Cache) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.CallTimeout},
		results:    results,
		limits:     newRateLimiter(time.Now),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "remote-translate",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 8
			},
		}),
		sleep: sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Translate translates texts from sourceLang to targetLang and
// returns a map from original to translated text. Array input is
// combined into one call with a reconstructable separator; unresolved
// entries fall back to the original text.
func (c *Client) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) (map[string]string, error) {
	texts = compactTexts(texts)
	if len(texts) == 0 {
		return nil, newError(ClassValidation, actionTranslate, errors.New("empty content"))
	}
	if sourceLang == "" || targetLang == "" {
		return nil, newError(ClassValidation, actionTranslate, errors.New("source and target language are required"))
	}

	content := strings.Join(texts, textSeparator)

	if c.results != nil {
		if payload, ok := c.results.Get(sourceLang, targetLang, content); ok {
			return resolveTranslations(texts, content, payload.Translations), nil
		}
	}

	// Collapse concurrent identical calls into one network request.
	key := cache.Key(sourceLang, targetLang, content)
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		resp, err := c.doCall(ctx, actionTranslate, apiRequest{
			Action:         actionTranslate,
			Content:        content,
			SourceLanguage: sourceLang,
			TargetLanguage: targetLang,
		})
		if err != nil {
			return nil, err
		}

		translations := resolveTranslations(texts, content, resp.Translations)
		if c.results != nil {
			c.results.Set(sourceLang, targetLang, content, cache.Payload{
				Kind:         cache.PayloadTranslation,
				Translations: translations,
			})
		}
		return translations, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// Summarize returns a renderable summary for the page content. It
// never fails outward: on any error the caller receives a localized
// placeholder payload.
func (c *Client) Summarize(ctx context.Context, content, targetLang, pageURL string) cache.Summary {
	if strings.TrimSpace(content) == "" {
		return placeholderSummary(targetLang, "no content to summarize")
	}

	if c.results != nil {
		if payload, ok := c.results.Get("auto", targetLang, content); ok && payload.Summary != nil {
			return *payload.Summary
		}
	}

	resp, err := c.doCall(ctx, actionSummarize, apiRequest{
		Action:         actionSummarize,
		Content:        content,
		TargetLanguage: targetLang,
		PageURL:        pageURL,
	})
	if err != nil || resp.Summary == nil {
		reason := "summary request failed"
		if err != nil {
			log.Warn("summarize %s: %v", pageURL, err)
			reason = classify(err).String() + " error"
		}
		return placeholderSummary(targetLang, reason)
	}

	if c.results != nil {
		c.results.Set("auto", targetLang, content, cache.Payload{
			Kind:    cache.PayloadSummary,
			Summary: resp.Summary,
		})
	}
	return *resp.Summary
}

// doCall runs the retry loop for one endpoint. The rate-limit window
// is checked before every attempt and a tripped window fails fast
// without consuming a retry.
func (c *Client) doCall(ctx context.Context, endpoint string, req apiRequest) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	policy := c.config.Policy
	var lastErr error
	lastClass := ClassUnknown

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := c.limits.check(endpoint); err != nil {
			return nil, err
		}

		if attempt > 1 {
			if err := c.sleep(ctx, policy.Delay(attempt, lastClass)); err != nil {
				return nil, newError(ClassTimeout, endpoint, err)
			}
		}

		resp, err := c.post(ctx, endpoint, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		lastClass = classify(err)
		if !policy.Retryable(lastClass) {
			return nil, err
		}
		log.Debug("%s attempt %d/%d failed (%s): %v", endpoint, attempt, policy.MaxAttempts, lastClass, err)
	}

	return nil, newError(lastClass, endpoint, fmt.Errorf("retries exhausted: %w", lastErr))
}

// post performs one HTTP round trip through the circuit breaker.
func (c *Client) post(ctx context.Context, endpoint string, req apiRequest) (*apiResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.postOnce(ctx, endpoint, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newError(ClassNetwork, endpoint, err)
		}
		return nil, err
	}
	return result.(*apiResponse), nil
}

func (c *Client) postOnce(ctx context.Context, endpoint string, payload apiRequest) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(ClassValidation, endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, newError(ClassValidation, endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if class := classify(err); class == ClassTimeout {
			return nil, newError(ClassTimeout, endpoint, err)
		}
		return nil, newError(ClassNetwork, endpoint, err)
	}
	defer httpResp.Body.Close()

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newError(ClassNetwork, endpoint, err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		resetAt := c.rateLimitReset(httpResp, responseBody)
		c.limits.set(endpoint, resetAt)
		return nil, &Error{
			Class:      ClassRateLimit,
			Op:         endpoint,
			Cause:      fmt.Errorf("endpoint refused calls until %s", resetAt.Format(time.RFC3339)),
			RetryAfter: time.Until(resetAt),
		}
	}
	if httpResp.StatusCode >= 500 {
		return nil, newError(ClassServer, endpoint, fmt.Errorf("status %d: %s", httpResp.StatusCode, string(responseBody)))
	}
	if httpResp.StatusCode >= 400 {
		return nil, newError(ClassValidation, endpoint, fmt.Errorf("status %d: %s", httpResp.StatusCode, string(responseBody)))
	}

	var resp apiResponse
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, newError(ClassUnknown, endpoint, fmt.Errorf("parse response: %w", err))
	}
	if !resp.Success {
		return nil, newError(ClassServer, endpoint, fmt.Errorf("remote failure: %s", resp.Error))
	}
	return &resp, nil
}

// rateLimitReset derives the window end from the Retry-After header or
// a resetAt body hint, falling back to a fixed window.
func (c *Client) rateLimitReset(resp *http.Response, body []byte) time.Time {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}
	var hint apiResponse
	if err := json.Unmarshal(body, &hint); err == nil && hint.ResetAt > 0 {
		return time.UnixMilli(hint.ResetAt)
	}
	return time.Now().Add(defaultRateLimitReset)
}

// resolveTranslations builds the per-text mapping from a response.
// The remote may answer per-text or with one joined string; either
// way unresolved entries keep their original text.
func resolveTranslations(texts []string, joined string, translations map[string]string) map[string]string {
	out := make(map[string]string, len(texts))

	// Joined answer: one entry keyed by the combined content, split
	// back by the separator.
	if len(translations) == 1 {
		if combined, ok := translations[joined]; ok {
			parts := strings.Split(combined, strings.TrimSpace(textSeparator))
			if len(parts) != len(texts) {
				parts = strings.Split(combined, textSeparator)
			}
			if len(parts) == len(texts) {
				for i, text := range texts {
					out[text] = strings.TrimSpace(parts[i])
				}
				return out
			}
		}
	}

	for _, text := range texts {
		if translated, ok := translations[text]; ok && strings.TrimSpace(translated) != "" {
			out[text] = translated
			continue
		}
		out[text] = text
	}
	return out
}

func compactTexts(texts []string) []string {
	ret := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) != "" {
			ret = append(ret, text)
		}
	}
	return ret
}

func placeholderSummary(targetLang, reason string) cache.Summary {
	title, note := placeholderStrings(targetLang)
	return cache.Summary{
		Title: title,
		Points: []cache.SummaryPoint{
			{Emoji: "⚠️", Text: note},
			{Emoji: "🔁", Text: reason},
		},
	}
}

func placeholderStrings(targetLang string) (string, string) {
	switch baseLang(targetLang) {
	case "es":
		return "Resumen no disponible", "No se pudo generar el resumen de esta página."
	case "fr":
		return "Résumé indisponible", "Le résumé de cette page n'a pas pu être généré."
	case "de":
		return "Zusammenfassung nicht verfügbar", "Die Zusammenfassung dieser Seite konnte nicht erstellt werden."
	case "zh":
		return "摘要不可用", "无法生成此页面的摘要。"
	default:
		return "Summary unavailable", "The summary for this page could not be generated."
	}
}

func baseLang(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}

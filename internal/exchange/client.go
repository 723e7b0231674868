package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/speech-translator/internal/payload"
)

// Defaults used when Config leaves a collaborator unset
const (
	DefaultBaseURL        = "http://localhost:8080/api/translator"
	DefaultSourceLanguage = "en"
	DefaultTargetLanguage = "ary"
	DefaultVoice          = "standard"
	DefaultTimeout        = 60 * time.Second

	translatePath     = "/speech/translate"
	translateTextPath = "/translate"
	readAloudPath     = "/read-aloud"
	maxErrorBody      = 4096
)

// ErrTransport is matched by every failed translate call, including non-2xx responses
var ErrTransport = errors.New("translation transport failure")

// ErrEmptyText is returned before sending when a text request has nothing to send
var ErrEmptyText = errors.New("text is required")

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements error
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// Is makes StatusError match ErrTransport
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// LanguagePair is the source and target language codes of one request
type LanguagePair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains translation client configuration.
// Every function field is optional and read at send time.
type Config struct {
	BaseURL   func() string       // Translator API base, e.g. http://host/api/translator
	Headers   func(h http.Header) // Adds collaborator headers to each request
	Languages func() LanguagePair // Active language pair
	Doer      Doer                // Authorization-augmenting transport
	Voice     string
	Timeout   time.Duration
}

// TranslateRequest is the JSON body of POST /speech/translate
type TranslateRequest struct {
	AudioBase64    string `json:"audioBase64"`
	AudioMimeType  string `json:"audioMimeType"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	Voice          string `json:"voice"`
}

// Result is the backend response. Absent fields decode as empty strings.
type Result struct {
	Transcript            string `json:"transcript"`
	TranslatedText        string `json:"translatedText"`
	TranslatedAudioBase64 string `json:"translatedAudioBase64,omitempty"`
}

// HasAudio reports whether the backend returned synthesized audio
func (r *Result) HasAudio() bool {
	return r != nil && r.TranslatedAudioBase64 != ""
}

// TextTranslateRequest is the JSON body of POST /translate
type TextTranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

// TextTranslation is the response of POST /translate
type TextTranslation struct {
	Translation string `json:"translation"`
}

// ReadAloudRequest is the JSON body of POST /read-aloud
type ReadAloudRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// ReadAloudResult is the response of POST /read-aloud
type ReadAloudResult struct {
	AudioBase64 string `json:"audioBase64"`
}

// HasAudio reports whether the backend returned synthesized audio
func (r *ReadAloudResult) HasAudio() bool {
	return r != nil && r.AudioBase64 != ""
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	LastError       string        `json:"last_error,omitempty"`
}

// Client performs speech, text and read-aloud requests against the backend
type Client struct {
	config Config

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration
	lastError       string

	mu sync.RWMutex
}

// NewClient creates a translation client, filling unset collaborators with defaults
func NewClient(config Config) *Client {
	if config.BaseURL == nil {
		config.BaseURL = func() string { return DefaultBaseURL }
	}
	if config.Headers == nil {
		config.Headers = func(http.Header) {}
	}
	if config.Languages == nil {
		config.Languages = func() LanguagePair {
			return LanguagePair{Source: DefaultSourceLanguage, Target: DefaultTargetLanguage}
		}
	}
	if config.Voice == "" {
		config.Voice = DefaultVoice
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Doer == nil {
		config.Doer = &http.Client{Timeout: config.Timeout}
	}

	return &Client{config: config}
}

// Endpoint returns the translate URL for the current base
func (c *Client) Endpoint() string {
	return c.url(translatePath)
}

func (c *Client) url(path string) string {
	base := strings.TrimRight(c.config.BaseURL(), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + path
}

// languages returns the active pair with blanks replaced by defaults
func (c *Client) languages() LanguagePair {
	langs := c.config.Languages()
	if langs.Source == "" {
		langs.Source = DefaultSourceLanguage
	}
	if langs.Target == "" {
		langs.Target = DefaultTargetLanguage
	}
	return langs
}

// Translate sends one payload and returns the parsed result. It never retries.
func (c *Client) Translate(ctx context.Context, p payload.EncodedPayload) (*Result, error) {
	langs := c.languages()
	req := TranslateRequest{
		AudioBase64:    p.Base64(),
		AudioMimeType:  p.MimeType(),
		SourceLanguage: langs.Source,
		TargetLanguage: langs.Target,
		Voice:          c.config.Voice,
	}

	var result Result
	if err := c.send(ctx, translatePath, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TranslateText translates typed text with the active language pair
func (c *Client) TranslateText(ctx context.Context, text string) (*TextTranslation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	langs := c.languages()
	req := TextTranslateRequest{
		Text:           text,
		SourceLanguage: langs.Source,
		TargetLanguage: langs.Target,
	}

	var result TextTranslation
	if err := c.send(ctx, translateTextPath, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadAloud asks the backend to synthesize text with the configured voice
func (c *Client) ReadAloud(ctx context.Context, text string) (*ReadAloudResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	var result ReadAloudResult
	if err := c.send(ctx, readAloudPath, ReadAloudRequest{Text: text, Voice: c.config.Voice}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// send performs one request and records it in the client statistics
func (c *Client) send(ctx context.Context, path string, req, out interface{}) error {
	startTime := time.Now()
	c.incrementTotalRequests()

	if err := c.doRequest(ctx, path, req, out); err != nil {
		c.recordFailure(err)
		return err
	}

	c.recordSuccess(time.Since(startTime))
	return nil
}

// doRequest performs a single JSON POST to path under the current base
func (c *Client) doRequest(ctx context.Context, path string, req, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Set headers
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	c.config.Headers(httpReq.Header)

	resp, err := c.config.Doer.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrTransport, err)
	}

	// Check HTTP status
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(respBody))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: text}
	}

	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: failed to parse response JSON: %v", ErrTransport, err)
		}
	}

	return nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) recordSuccess(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successRequests++

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

func (c *Client) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
	c.lastError = err.Error()
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		LastError:       c.lastError,
	}
}

// ErrorType classifies a request error for metrics
func ErrorType(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("http_%d", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

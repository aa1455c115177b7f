// Package proxy is a minimal OpenRouter chat completion client.
package proxy

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
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	maxAttempts    = 3
	firstBackoff   = 250 * time.Millisecond
)

// ErrEmptyCompletion is returned when the upstream answered without any choice.
var ErrEmptyCompletion = errors.New("completion has no choices")

// StatusError is a non-200 reply. Throttling and gateway failures are retried.
type StatusError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("openrouter: HTTP %d", e.Status)
	}
	return fmt.Sprintf("openrouter: HTTP %d: %s", e.Status, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *StatusError) Temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func isTemporary(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Temporary() {
		return se, true
	}
	return nil, false
}

// Client sends chat completions to OpenRouter.
type Client struct {
	apiKey     string
	baseURL    string
	appName    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client authenticating with apiKey. Callers bound each
// exchange with their context.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		appName:    "imgask",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete sends a non-streaming chat completion and returns the content of
// the first choice. Temporary failures are retried with doubling backoff, or
// after Retry-After when the upstream sends one. A retry whose wait would
// outlive the context deadline is not attempted.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	wait := firstBackoff
	for attempt := 1; ; attempt++ {
		content, err := c.send(ctx, body)
		se, retry := isTemporary(err)
		if !retry {
			return content, err
		}
		if attempt == maxAttempts {
			return "", fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		if se.RetryAfter > 0 {
			wait = se.RetryAfter
		}
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
			return "", err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/kalambet/imgask")
	req.Header.Set("X-Title", c.appName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{
			Status:     resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var cb completionBody
	if err := json.NewDecoder(resp.Body).Decode(&cb); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if cb.Error != nil {
		return "", &StatusError{Status: cb.Error.Code, Body: cb.Error.Message}
	}
	if len(cb.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return cb.Choices[0].Message.Content, nil
}

// parseRetryAfter understands the delay-seconds form only.
func parseRetryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

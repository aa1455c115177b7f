package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ContextTag labels suggestion requests made for image questions.
const ContextTag = "image-question"

// Request is the body of POST /api/suggestions.
type Request struct {
	Partial string `json:"partial"`
	Context string `json:"context"`
}

// Response is the reply of POST /api/suggestions.
type Response struct {
	Success     bool     `json:"success"`
	Suggestions []string `json:"suggestions"`
	Error       string   `json:"error,omitempty"`
}

// LocalTier calls a suggestion service reachable over HTTP, typically an
// `imgask serve` instance on the same machine.
type LocalTier struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewLocalTier creates a tier for the service at baseURL. token, when set,
// is sent as a bearer token.
func NewLocalTier(baseURL, token string) *LocalTier {
	return &LocalTier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

func (t *LocalTier) Name() string { return "local" }

// Suggest returns the service's list as-is, apart from the size cap.
func (t *LocalTier) Suggest(ctx context.Context, partial string) ([]string, error) {
	body, err := json.Marshal(Request{Partial: partial, Context: ContextTag})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/suggestions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting suggestions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("suggestion service: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sr Response
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding suggestions: %w", err)
	}
	if !sr.Success {
		return nil, fmt.Errorf("suggestion service: %s", sr.Error)
	}
	return Normalize(sr.Suggestions), nil
}

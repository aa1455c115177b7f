package imagequery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Reasons reported by the analysis service for policy rejections.
const (
	ReasonSafety     = "safety"
	ReasonRecitation = "recitation"
)

// User-facing texts for policy rejections.
const (
	SafetyMessage     = "The answer was blocked by the safety policy. Try rephrasing the question or using a different image."
	RecitationMessage = "The answer was blocked by the recitation policy. Try asking for a summary instead of exact text."
)

// AnalyzeRequest is the body of POST /api/analyze-image. Image is a data URI
// or a bare base64 payload.
type AnalyzeRequest struct {
	Image    string `json:"image"`
	Question string `json:"question"`
}

// AnalyzeResponse is the reply of POST /api/analyze-image.
type AnalyzeResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Backend answers a question about a canonical image.
type Backend interface {
	Analyze(ctx context.Context, image, question string) (string, error)
}

// BackendError is a failure reported by the backend itself, as opposed to a
// transport failure.
type BackendError struct {
	Status  int
	Message string
	Reason  string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analysis failed (HTTP %d)", e.Status)
	}
	return e.Message
}

// HTTPBackend calls an `imgask serve` analysis endpoint.
type HTTPBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend for the service at baseURL. token, when
// set, is sent as a bearer token.
func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (b *HTTPBackend) Analyze(ctx context.Context, image, question string) (string, error) {
	body, err := json.Marshal(AnalyzeRequest{Image: image, Question: question})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/analyze-image", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading analysis response: %w", err)
	}

	var ar AnalyzeResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &BackendError{Status: resp.StatusCode}
		}
		return "", fmt.Errorf("decoding analysis response: %w", err)
	}
	if !ar.Success {
		return "", &BackendError{Status: resp.StatusCode, Message: ar.Error, Reason: ar.Reason}
	}
	return ar.Data, nil
}

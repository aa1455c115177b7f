// Package gemini wraps the genai SDK for the two calls imgask makes:
// answering a question about an image and plain text generation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

var (
	// ErrBlockedSafety is returned when the model or the prompt filter
	// refused to answer for safety reasons.
	ErrBlockedSafety = errors.New("blocked by safety policy")

	// ErrBlockedRecitation is returned when the answer was withheld because
	// it would have recited protected material.
	ErrBlockedRecitation = errors.New("blocked by recitation policy")

	// ErrNoCandidates is returned when the response carries no usable text.
	ErrNoCandidates = errors.New("the model returned no answer")
)

const (
	visionTemperature = 0.4
	textTemperature   = 0.1
	textMaxTokens     = 1000
)

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is a thin wrapper around the official genai client.
type Client struct {
	models generator
	model  string
}

// New creates a client for the Gemini API. baseURL may be empty to use the
// SDK default endpoint.
func New(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{models: cli.Models, model: model}, nil
}

func (c *Client) Name() string { return "Gemini:" + c.model }

// AnswerImage asks question about the image bytes.
func (c *Client) AnswerImage(ctx context.Context, image []byte, mimeType, question string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(question),
		}, genai.RoleUser),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](visionTemperature),
	})
	if err != nil {
		return "", err
	}
	return answerText(resp)
}

// Generate runs a single text prompt with low temperature.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](textTemperature),
			CandidateCount:  1,
			MaxOutputTokens: textMaxTokens,
		},
	)
	if err != nil {
		return "", err
	}
	return answerText(resp)
}

// answerText extracts the first candidate's text, classifying policy blocks.
func answerText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrNoCandidates
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		if pf.BlockReason == genai.BlockedReasonSafety {
			return "", ErrBlockedSafety
		}
		return "", fmt.Errorf("prompt blocked: %s", pf.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrNoCandidates
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety:
		return "", ErrBlockedSafety
	case genai.FinishReasonRecitation:
		return "", ErrBlockedRecitation
	}

	if cand.Content == nil {
		return "", ErrNoCandidates
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}

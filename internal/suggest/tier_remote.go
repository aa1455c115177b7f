package suggest

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/imgask/internal/proxy"
)

const remotePrompt = `You complete questions that a user is typing about an image they are looking at.
Given the partial question, reply with up to 3 complete questions that begin with the user's text.
Write one question per line. Do not number the lines, add quotes, or write anything else.`

// Completer is the chat completion surface of the OpenRouter client.
type Completer interface {
	Complete(ctx context.Context, req proxy.ChatRequest) (string, error)
}

// RemoteTier asks a hosted model for completions.
type RemoteTier struct {
	client Completer
	model  string
}

// NewRemoteTier creates a tier backed by client using model.
func NewRemoteTier(client Completer, model string) *RemoteTier {
	return &RemoteTier{client: client, model: model}
}

func (t *RemoteTier) Name() string { return "remote" }

// Suggest returns candidates strictly longer than partial and no longer
// than MaxLength.
func (t *RemoteTier) Suggest(ctx context.Context, partial string) ([]string, error) {
	temp := 0.3
	raw, err := t.client.Complete(ctx, proxy.ChatRequest{
		Model: t.model,
		Messages: []proxy.Message{
			{Role: "system", Content: remotePrompt},
			{Role: "user", Content: partial},
		},
		Temperature: &temp,
		MaxTokens:   120,
	})
	if err != nil {
		return nil, err
	}
	return parseCompletions(raw, partial), nil
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// parseCompletions splits a model reply into acceptable candidates.
func parseCompletions(raw, partial string) []string {
	minLen := utf8.RuneCountInString(strings.TrimSpace(partial))
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n <= minLen || n > MaxLength {
			continue
		}
		out = append(out, line)
	}
	return Normalize(out)
}

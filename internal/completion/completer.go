// Package completion serves question completions from a fast local model.
package completion

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kalambet/imgask/internal/ollama"
	"github.com/kalambet/imgask/internal/suggest"
)

const completionTimeout = 3 * time.Second

// OllamaChatter is the interface for chat completion via Ollama.
type OllamaChatter interface {
	ChatWithOptions(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema, opts *ollama.Options) (string, error)
}

type completionResult struct {
	Suggestions []string `json:"suggestions"`
}

// Completer answers suggestion requests for the local service endpoint.
type Completer struct {
	client  OllamaChatter
	model   string
	timeout time.Duration
}

// NewCompleter creates a Completer using the given Ollama client and model name.
// A nil client disables the model and serves pattern suggestions only.
func NewCompleter(client OllamaChatter, model string) *Completer {
	return &Completer{client: client, model: model, timeout: completionTimeout}
}

// Complete returns up to suggest.MaxItems completions for partial. Model
// failures (timeout, malformed JSON, Ollama error, nothing usable) fall back to
// pattern suggestions, so the result is only empty when patterns have nothing.
func (c *Completer) Complete(ctx context.Context, partial string) []string {
	if c.client != nil {
		if items := c.fromModel(ctx, partial); len(items) > 0 {
			return items
		}
	}
	return suggest.Patterns(partial)
}

func (c *Completer) fromModel(ctx context.Context, partial string) []string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.ChatWithOptions(ctx, c.model, BuildPrompt(partial), completionSchema(), &ollama.Options{Temperature: 0.3, NumPredict: 150})
	if err != nil {
		slog.Warn("completion chat failed", "error", err)
		return nil
	}

	var result completionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("failed to unmarshal completions from LLM response", "error", err, "response", raw)
		return nil
	}

	minLen := utf8.RuneCountInString(strings.TrimSpace(partial))
	var out []string
	for _, s := range result.Suggestions {
		s = strings.TrimSpace(s)
		if n := utf8.RuneCountInString(s); n > minLen && n <= suggest.MaxLength {
			out = append(out, s)
		}
	}
	return suggest.Normalize(out)
}

func completionSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"suggestions": {
				Type:        "array",
				Description: "Complete questions that begin with the user's partial text",
				Items:       &ollama.SchemaProperty{Type: "string"},
				MaxItems:    suggest.MaxItems,
			},
		},
		Required: []string{"suggestions"},
	}
}

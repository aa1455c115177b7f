package completion

import (
	"github.com/kalambet/imgask/internal/ollama"
)

const systemPrompt = `You complete questions about an image. The user has typed the beginning of a question about a picture they are looking at. Your output must be ONLY a single valid JSON object that conforms to the provided schema. Do not include any other text, prose, or markdown.

Rules:
- Return at most 3 suggestions.
- Every suggestion starts with the user's text and ends with a question mark or a period.
- Keep each suggestion under 100 characters.
- Ask about things visible in an image: objects, people, colors, text, places, counts.`

// BuildPrompt constructs the Ollama chat messages for completing partial.
func BuildPrompt(partial string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: partial},
	}
}

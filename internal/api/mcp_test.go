package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/imgask/internal/gemini"
	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/storage"
	"github.com/kalambet/imgask/internal/tools"
)

type mockMCPFetcher struct {
	uri string
	err error
}

func (m *mockMCPFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return m.uri, m.err
}

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store := newTestStore(t)
	return MCPDeps{
		Deps: Deps{
			Analyzer:  &mockAnalyzer{answer: "A cat."},
			Suggester: &mockSuggester{items: []string{"What is this?"}},
			Store:     store,
		},
		Fetcher: &mockMCPFetcher{uri: testImage},
		Tools:   tools.Default(),
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps, "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_SuggestQuestions(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSuggestQuestions(deps)

	result, err := handler(context.Background(), makeCallToolRequest("suggest_questions", map[string]interface{}{
		"partial": "what",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var items []string
	if err := json.Unmarshal([]byte(toolText(t, result)), &items); err != nil {
		t.Fatalf("result is not a JSON array: %v", err)
	}
	if len(items) != 1 || items[0] != "What is this?" {
		t.Errorf("items = %v", items)
	}
}

func TestMCPTool_SuggestQuestions_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Suggester = &mockSuggester{}

	result, _ := mcpSuggestQuestions(deps)(context.Background(), makeCallToolRequest("suggest_questions", map[string]interface{}{
		"partial": "zzzz",
	}))
	if got := toolText(t, result); got != "[]" {
		t.Errorf("text = %q, want []", got)
	}
}

func TestMCPTool_SuggestQuestions_Invalid(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSuggestQuestions(deps)

	for _, args := range []map[string]interface{}{{}, {"partial": "wh"}} {
		result, err := handler(context.Background(), makeCallToolRequest("suggest_questions", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected error result", args)
		}
	}
}

func TestMCPTool_AskImage_Inline(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpAskImage(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask_image", map[string]interface{}{
		"image":    testImage,
		"question": "What is this?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "A cat." {
		t.Errorf("text = %q", got)
	}

	logged, _ := store.ListInteractions(1)
	if len(logged) != 1 || logged[0].ImageSource != "inline" {
		t.Errorf("logged = %+v", logged)
	}
}

func TestMCPTool_AskImage_URL(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpAskImage(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("ask_image", map[string]interface{}{
		"image":    "https://example.com/cat.png",
		"question": "What is this?",
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	logged, _ := store.ListInteractions(1)
	if len(logged) != 1 || logged[0].ImageSource != "https://example.com/cat.png" {
		t.Errorf("logged = %+v, want URL as source", logged)
	}
}

func TestMCPTool_AskImage_FetchFailure(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Fetcher = &mockMCPFetcher{err: errors.New("404")}
	analyzer := deps.Analyzer.(*mockAnalyzer)

	result, _ := mcpAskImage(deps)(context.Background(), makeCallToolRequest("ask_image", map[string]interface{}{
		"image":    "https://example.com/missing.png",
		"question": "What is this?",
	}))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if got := toolText(t, result); got != imagequery.MsgFetchFailed {
		t.Errorf("text = %q, want %q", got, imagequery.MsgFetchFailed)
	}
	if analyzer.calls != 0 {
		t.Error("analyzer called after fetch failure")
	}
}

func TestMCPTool_AskImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		modelErr error
		want     string
	}{
		{"missing image", map[string]interface{}{"question": "q?"}, nil, "image is required"},
		{"missing question", map[string]interface{}{"image": testImage}, nil, "question is required"},
		{"too long", map[string]interface{}{"image": testImage, "question": strings.Repeat("x", 501)}, nil, "question must be at most 500 characters"},
		{"safety", map[string]interface{}{"image": testImage, "question": "q?"}, gemini.ErrBlockedSafety, imagequery.SafetyMessage},
		{"recitation", map[string]interface{}{"image": testImage, "question": "q?"}, gemini.ErrBlockedRecitation, imagequery.RecitationMessage},
		{"no candidates", map[string]interface{}{"image": testImage, "question": "q?"}, gemini.ErrNoCandidates, "the model returned no answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := newTestMCPDeps(t)
			deps.Analyzer = &mockAnalyzer{err: tt.modelErr}

			result, err := mcpAskImage(deps)(context.Background(), makeCallToolRequest("ask_image", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if got := toolText(t, result); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMCPTool_ListTools(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, _ := mcpListTools(deps)(context.Background(), makeCallToolRequest("list_tools", nil))
	text := toolText(t, result)
	for _, name := range []string{"calculate_average", "count_vowels", "is_palindrome"} {
		if !strings.Contains(text, name+":") {
			t.Errorf("list missing %q:\n%s", name, text)
		}
	}
}

func TestMCPTool_ConcurrentAsks(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpAskImage(deps)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := handler(context.Background(), makeCallToolRequest("ask_image", map[string]interface{}{
				"image":    testImage,
				"question": "What is this?",
			}))
			if err != nil {
				errs <- err.Error()
				return
			}
			if result.IsError {
				errs <- "tool returned error"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}

	logged, err := store.ListInteractions(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(logged) != n {
		t.Errorf("logged %d interactions, want %d", len(logged), n)
	}
}

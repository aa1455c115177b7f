package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/tools"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Deps
	Fetcher imagequery.ImageFetcher
	Tools   *tools.Registry
}

// NewMCPServer creates an MCP server exposing suggestions, image questions
// and the reasoning tool list.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"imgask",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("imgask answers questions about images and suggests questions to ask."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("suggest_questions",
			mcp.WithDescription("Complete a partially typed question about an image. Returns up to 3 suggestions as a JSON array."),
			mcp.WithString("partial", mcp.Description("The beginning of the question, at least 3 characters"), mcp.Required()),
		),
		mcpSuggestQuestions(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_image",
			mcp.WithDescription("Ask a question about an image and get the model's answer."),
			mcp.WithString("image", mcp.Description("The image as a data URI, bare base64 JPEG, or an http(s) URL"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question, at most 500 characters"), mcp.Required()),
		),
		mcpAskImage(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tools",
			mcp.WithDescription("List the deterministic tools available to the reasoning command."),
		),
		mcpListTools(deps),
	)

	return s
}

func mcpSuggestQuestions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		partial, err := req.RequireString("partial")
		if err != nil {
			return mcpError("partial is required"), nil
		}
		if len([]rune(strings.TrimSpace(partial))) < 3 {
			return mcpError("partial must be at least 3 characters"), nil
		}

		items := deps.Suggester.Complete(ctx, partial)
		if items == nil {
			items = []string{}
		}
		b, err := json.Marshal(items)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal suggestions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskImage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		image, err := req.RequireString("image")
		if err != nil {
			return mcpError("image is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		source := "inline"
		if imagequery.IsURL(image) {
			source = image
			if deps.Fetcher == nil {
				return mcpError("image URLs are not supported by this server"), nil
			}
			image, err = deps.Fetcher.Fetch(ctx, source)
			if err != nil {
				slog.Warn("image fetch failed", "url", source, "error", err)
				return mcpError(imagequery.MsgFetchFailed), nil
			}
		}

		answer, err := analyze(ctx, deps.Deps, image, question, source)
		if err != nil {
			re := asRequestError(err)
			switch re.Reason {
			case imagequery.ReasonSafety:
				return mcpError(imagequery.SafetyMessage), nil
			case imagequery.ReasonRecitation:
				return mcpError(imagequery.RecitationMessage), nil
			}
			return mcpError(re.Message), nil
		}
		return mcpText(answer), nil
	}
}

func mcpListTools(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Tools == nil {
			return mcpText(""), nil
		}
		return mcpText(strings.Join(deps.Tools.Descriptions(), "\n")), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

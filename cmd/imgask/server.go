package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/imgask/internal/api"
	"github.com/kalambet/imgask/internal/completion"
	"github.com/kalambet/imgask/internal/config"
	"github.com/kalambet/imgask/internal/gemini"
	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/ollama"
	"github.com/kalambet/imgask/internal/storage"
	"github.com/kalambet/imgask/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the imgask API server (foreground)",
	Long: `Run the imgask API server in the foreground.

The server answers image questions through Gemini, serves suggestions from a
local Ollama model and records every question in the interaction log.

Examples:
  imgask serve
  imgask serve --mcp    # also serve MCP over stdio`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show imgask system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdin/stdout")
}

// setupLogging installs the default slog handler writing to w.
func setupLogging(w io.Writer, level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "imgask version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return withExitCode(2, err)
	}
	setupLogging(os.Stderr, cfg.Log.Level)

	if err := cfg.RequireGeminiKey(); err != nil {
		return withExitCode(2, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The suggestion model is optional; completion falls back to patterns.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	var chatter completion.OllamaChatter
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.SuggestModel, os.Stderr); err != nil {
		slog.Warn("local suggestion model unavailable, serving pattern suggestions", "error", err)
	} else {
		chatter = ollamaClient
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	vision, err := gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL)
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}
	slog.Info("vision backend ready", "model", vision.Name())

	deps := api.Deps{
		Analyzer:      vision,
		Suggester:     completion.NewCompleter(chatter, cfg.Ollama.SuggestModel),
		Store:         store,
		Token:         cfg.Server.APIToken,
		MaxImageBytes: cfg.Image.MaxBytes,
	}
	if deps.Token == "" {
		slog.Warn("server.api_token is not set, /api is unauthenticated")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := api.NewServer(ctx, addr, api.NewHandler(deps))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "imgask listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Deps:    deps,
			Fetcher: imagequery.NewFetcher(cfg.Image.MaxBytes, cfg.Image.FetchTimeout),
			Tools:   tools.Default(),
		}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := &apiClient{baseURL: serverURL(cfg), httpClient: http.DefaultClient}
	var health struct {
		Status string `json:"status"`
	}
	switch err := c.call(ctx, http.MethodGet, "/health", nil, &health); {
	case err == nil:
		printStatus("Server", "running on port %d (%s)", cfg.Server.Port, health.Status)
	case strings.Contains(err.Error(), "not reachable"):
		printStatus("Server", "stopped")
	default:
		printStatus("Server", "error: %v", err)
	}

	oc := ollama.New(cfg.Ollama.BaseURL)
	if oc.IsRunning(ctx) {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		if oc.HasModel(ctx, cfg.Ollama.SuggestModel) {
			printStatus("Suggest model", "%s (pulled)", cfg.Ollama.SuggestModel)
		} else {
			printStatus("Suggest model", "%s (not pulled)", cfg.Ollama.SuggestModel)
		}
	} else {
		printStatus("Ollama", "not running")
		printStatus("Suggest model", "%s", cfg.Ollama.SuggestModel)
	}

	printStatus("Vision model", "%s", cfg.Gemini.Model)
	if cfg.Gemini.APIKey == "" {
		printStatus("Gemini key", "missing")
	} else {
		printStatus("Gemini key", "set")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

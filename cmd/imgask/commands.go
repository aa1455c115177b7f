package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/imgask/internal/api"
	"github.com/kalambet/imgask/internal/config"
	"github.com/kalambet/imgask/internal/imagequery"
	"github.com/kalambet/imgask/internal/proxy"
	"github.com/kalambet/imgask/internal/storage"
	"github.com/kalambet/imgask/internal/suggest"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an image",
	Long: `Ask a question about an image through a running imgask server.

Examples:
  imgask ask --image ./cat.png --question "What breed is this cat?"
  imgask ask --image https://example.com/street.jpg --question "How many cars are there?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		question, _ := cmd.Flags().GetString("question")
		if image == "" || question == "" {
			return fmt.Errorf("--image and --question are required")
		}

		cfg, err := config.Load()
		if err != nil {
			return withExitCode(2, err)
		}

		ref, err := imagequery.Parse(image)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p := newPipeline(cfg)
		p.SetImage(ref)
		printStep("Asking about %s", ref.Location())
		result, _ := p.Ask(ctx, question)
		return printResult(cmd, result)
	},
}

func init() {
	askCmd.Flags().String("image", "", "image file path or http(s) URL")
	askCmd.Flags().String("question", "", "question about the image (max 500 characters)")
}

func newPipeline(cfg config.Config, opts ...imagequery.Option) *imagequery.Pipeline {
	backend := imagequery.NewHTTPBackend(serverURL(cfg), cfg.Server.APIToken)
	fetcher := imagequery.NewFetcher(cfg.Image.MaxBytes, cfg.Image.FetchTimeout)
	return imagequery.NewPipeline(backend, fetcher, opts...)
}

func printResult(cmd *cobra.Command, r imagequery.QueryResult) error {
	switch r.Status {
	case imagequery.StatusSuccess:
		fmt.Fprintln(cmd.OutOrStdout(), r.Answer)
		return nil
	case imagequery.StatusError:
		if r.Retryable {
			printWarning("the request can be retried")
		}
		return errors.New(r.ErrorMessage)
	}
	return fmt.Errorf("unexpected query status %q", r.Status)
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest <partial question...>",
	Short: "Complete a partially typed question",
	Long: `Complete a partially typed question about an image.

Sources are tried in order: the hosted model (when openrouter.api_key is set),
the suggestion service (when suggest.service_url is set), then the built-in
pattern table.

Examples:
  imgask suggest what is
  imgask suggest "how many"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partial := strings.Join(args, " ")
		if len([]rune(strings.TrimSpace(partial))) < suggest.MinQueryLength {
			return fmt.Errorf("partial question must be at least %d characters", suggest.MinQueryLength)
		}

		cfg, err := config.Load()
		if err != nil {
			return withExitCode(2, err)
		}
		setupLogging(os.Stderr, cfg.Log.Level)

		r := newResolver(cfg)
		printSuggestions(cmd.OutOrStdout(), r.Resolve(cmd.Context(), partial))
		return nil
	},
}

// newResolver assembles the tier chain from configuration.
func newResolver(cfg config.Config) *suggest.Resolver {
	var tiers []suggest.Tier
	if cfg.OpenRouter.APIKey != "" {
		tiers = append(tiers, suggest.NewRemoteTier(proxy.NewClient(cfg.OpenRouter.APIKey), cfg.OpenRouter.Model))
	}
	if cfg.Suggest.ServiceURL != "" {
		tiers = append(tiers, suggest.NewLocalTier(cfg.Suggest.ServiceURL, cfg.Server.APIToken))
	}
	return suggest.NewResolver(cfg.Suggest.TierTimeout, cfg.Suggest.CacheSize, tiers...)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent image questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		entries, err := client.history(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No interactions found.")
			return nil
		}

		for _, e := range entries {
			outcome := truncate(e.Answer, 60)
			if e.Status != storage.StatusSuccess {
				outcome = colorize(colorRed, "error: "+truncate(e.Error, 53))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n    %s\n",
				colorize(colorCyan, shortID(e.ID)),
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				truncate(e.Question, 80),
				outcome,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
}

func (c *apiClient) history(ctx context.Context, limit int) ([]api.HistoryEntry, error) {
	var entries []api.HistoryEntry
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/history?limit=%d", limit), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(2, err)
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return withExitCode(2, err)
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

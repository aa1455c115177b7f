package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/imgask/internal/config"
	"github.com/kalambet/imgask/internal/gemini"
	"github.com/kalambet/imgask/internal/reasoning"
	"github.com/kalambet/imgask/internal/tools"
)

// newGenerator builds the reasoning model client. Tests replace it.
var newGenerator = func(ctx context.Context, cfg config.Config) (reasoning.Generator, error) {
	return gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL)
}

var reasonCmd = &cobra.Command{
	Use:   "reason",
	Short: "Answer a question with model reasoning and deterministic tools",
	Long: `Answer a question by letting the model plan, calling deterministic math
and text tools, and feeding their results back for a final answer.

Exit status is 2 when no Gemini API key is configured and 1 when the model
cannot be reached or any tool call fails.

Examples:
  imgask reason -q "What is the average of 4, 8 and 15?"
  imgask reason -q "Is 'racecar' a palindrome?" --verbose
  imgask reason --list-tools`,
	RunE: runReason,
}

func init() {
	reasonCmd.Flags().StringP("query", "q", "", "question to answer")
	reasonCmd.Flags().Bool("verbose", false, "print progress while reasoning")
	reasonCmd.Flags().Bool("no-reasoning", false, "omit the reasoning section from the output")
	reasonCmd.Flags().String("api-key", "", "Gemini API key (overrides gemini.api_key)")
	reasonCmd.Flags().Bool("list-tools", false, "list available tools and exit")
}

func runReason(cmd *cobra.Command, args []string) error {
	registry := tools.Default()
	out := cmd.OutOrStdout()

	if listTools, _ := cmd.Flags().GetBool("list-tools"); listTools {
		for _, d := range registry.Descriptions() {
			fmt.Fprintln(out, d)
		}
		return nil
	}

	query, _ := cmd.Flags().GetString("query")
	query = strings.TrimSpace(query)
	if query == "" {
		return withExitCode(2, fmt.Errorf("--query is required"))
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	noReasoning, _ := cmd.Flags().GetBool("no-reasoning")
	apiKey, _ := cmd.Flags().GetString("api-key")

	cfg, err := config.Load()
	if err != nil {
		return withExitCode(2, err)
	}
	if apiKey != "" {
		cfg.Gemini.APIKey = apiKey
	}
	if err := cfg.RequireGeminiKey(); err != nil {
		return withExitCode(2, err)
	}

	llm, err := newGenerator(cmd.Context(), cfg)
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			return withExitCode(2, err)
		}
		return fmt.Errorf("creating model client: %w", err)
	}

	var opts []reasoning.Option
	if verbose {
		opts = append(opts, reasoning.WithProgress(func(s string) { printStep("%s", s) }))
	}

	res, runErr := reasoning.New(llm, registry, opts...).Run(cmd.Context(), query)
	if runErr != nil && res.Query == "" {
		return runErr
	}
	if err := reasoning.Write(out, res, !noReasoning); err != nil {
		fmt.Fprintf(os.Stderr, "warning: writing output: %v\n", err)
	}
	if runErr != nil {
		return runErr
	}
	if res.ToolFailed() {
		return errors.New("one or more tool calls failed")
	}
	return nil
}

// Package reasoning answers questions with a model that plans tool calls,
// runs those tools locally and then writes a final answer from their
// results.
package reasoning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/imgask/internal/tools"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CallResult is the outcome of one tool call.
type CallResult struct {
	Raw    string
	Name   string
	Output string
	Err    error
}

func (c CallResult) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s -> error: %v", c.Raw, c.Err)
	}
	return fmt.Sprintf("%s -> %s", c.Raw, c.Output)
}

// Result is a completed reasoning run.
type Result struct {
	Query       string
	Reasoning   string
	ToolsNeeded string
	Calls       []CallResult
	FinalAnswer string
	Raw         string
}

// ToolFailed reports whether any tool call failed.
func (r Result) ToolFailed() bool {
	for _, c := range r.Calls {
		if c.Err != nil {
			return true
		}
	}
	return false
}

// Reasoner runs the plan, execute, answer loop.
type Reasoner struct {
	llm      Generator
	registry *tools.Registry
	onStep   func(string)
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithProgress registers a callback receiving short progress lines.
func WithProgress(f func(string)) Option {
	return func(r *Reasoner) { r.onStep = f }
}

// New creates a Reasoner over llm and registry.
func New(llm Generator, registry *tools.Registry, opts ...Option) *Reasoner {
	r := &Reasoner{llm: llm, registry: registry}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run answers query. An error is returned only when the model cannot be
// reached; tool failures are recorded in the result.
func (r *Reasoner) Run(ctx context.Context, query string) (Result, error) {
	r.step("asking the model for a plan")
	raw, err := r.llm.Generate(ctx, StructuredPrompt(query, r.registry.Descriptions()))
	if err != nil {
		return Result{}, fmt.Errorf("reasoning request: %w", err)
	}

	sec := ParseSections(raw)
	res := Result{
		Query:       query,
		Reasoning:   sec.Reasoning,
		ToolsNeeded: sec.ToolsNeeded,
		FinalAnswer: sec.FinalAnswer,
		Raw:         raw,
	}
	if !sec.Complete() {
		slog.Debug("model reply is missing sections", "reply", raw)
	}

	calls := ExtractCalls(sec.ToolsNeeded)
	if len(calls) > 0 {
		r.step(fmt.Sprintf("running %d tool call(s)", len(calls)))
	}
	anyOK := false
	for _, c := range calls {
		cr := r.execute(c)
		if cr.Err == nil {
			anyOK = true
		}
		r.step(cr.String())
		res.Calls = append(res.Calls, cr)
	}

	if !anyOK {
		return res, nil
	}

	r.step("asking the model for the final answer")
	follow, err := r.llm.Generate(ctx, FollowUpPrompt(query, sec.Reasoning, res.Calls))
	if err != nil {
		return res, fmt.Errorf("final answer request: %w", err)
	}
	if fa := ParseSections(follow).FinalAnswer; fa != "" {
		res.FinalAnswer = fa
	} else {
		slog.Debug("follow-up reply has no final answer section", "reply", follow)
	}
	return res, nil
}

func (r *Reasoner) execute(raw string) CallResult {
	call, err := tools.ParseCall(raw)
	cr := CallResult{Raw: call.Raw, Name: call.Name}
	if err != nil {
		cr.Err = err
		return cr
	}
	cr.Output, cr.Err = r.registry.Call(call.Name, call.Args)
	return cr
}

func (r *Reasoner) step(msg string) {
	if r.onStep != nil {
		r.onStep(msg)
	}
}

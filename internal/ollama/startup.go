package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that Ollama is running and model is present, pulling it
// with progress written to w when missing, then warms it so the first
// suggestion does not pay the load time. Only an unreachable server or a
// failed pull is an error.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	if !c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		last := -1
		err := c.PullModel(ctx, model, func(p PullProgress) {
			pct := p.Percent()
			if pct < 0 {
				fmt.Fprintf(w, "  %s\n", p.Status)
				return
			}
			// One line per 10% keeps the log readable.
			if step := int(pct) / 10; step != last {
				last = step
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			}
		})
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", model)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := c.Warm(warmCtx, model); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
		return nil
	}
	fmt.Fprintf(w, "model %s: warm\n", model)
	return nil
}

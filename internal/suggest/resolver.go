// Package suggest turns partial image questions into short lists of
// completions. A Resolver tries its tiers in order and falls back to a
// rule-based pattern table; a Controller debounces keystrokes and keeps
// suggestion state consistent with the most recent text.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTierTimeout bounds each network tier.
const DefaultTierTimeout = 4 * time.Second

// Tier is one source of suggestions.
type Tier interface {
	Name() string
	Suggest(ctx context.Context, partial string) ([]string, error)
}

// Resolver produces up to MaxItems suggestions for a partial question.
type Resolver struct {
	tiers   []Tier
	timeout time.Duration
	cache   *lru.Cache[string, []string]
}

// NewResolver builds a resolver over the given network tiers, tried in
// order before the pattern table. cacheSize <= 0 disables caching.
func NewResolver(timeout time.Duration, cacheSize int, tiers ...Tier) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTierTimeout
	}
	r := &Resolver{tiers: tiers, timeout: timeout}
	if cacheSize > 0 {
		c, err := lru.New[string, []string](cacheSize)
		if err != nil {
			slog.Warn("suggestion cache disabled", "error", err)
		} else {
			r.cache = c
		}
	}
	return r
}

// Tiers returns the names of the configured network tiers, in order.
func (r *Resolver) Tiers() []string {
	names := make([]string, len(r.tiers))
	for i, t := range r.tiers {
		names[i] = t.Name()
	}
	return names
}

// Resolve never fails: tier errors fall through to the next tier. If ctx is
// cancelled the chain stops and the result is empty.
func (r *Resolver) Resolve(ctx context.Context, partial string) []string {
	for _, t := range r.tiers {
		if ctx.Err() != nil {
			return nil
		}
		if items := r.try(ctx, t, partial); len(items) > 0 {
			return items
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return Patterns(partial)
}

func (r *Resolver) try(ctx context.Context, t Tier, partial string) []string {
	key := t.Name() + "\x00" + strings.ToLower(partial)
	if r.cache != nil {
		if items, ok := r.cache.Get(key); ok {
			return append([]string(nil), items...)
		}
	}

	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	items, err := t.Suggest(tctx, partial)
	if err != nil {
		if ctx.Err() == nil {
			slog.Debug("suggestion tier failed", "tier", t.Name(), "error", err)
		}
		return nil
	}
	items = Normalize(items)
	if len(items) > 0 && r.cache != nil {
		r.cache.Add(key, append([]string(nil), items...))
	}
	return items
}

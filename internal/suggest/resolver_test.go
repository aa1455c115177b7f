package suggest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeTier implements Tier with a function field.
type fakeTier struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, partial string) ([]string, error)
}

func (f *fakeTier) Name() string { return f.name }

func (f *fakeTier) Suggest(ctx context.Context, partial string) ([]string, error) {
	f.calls.Add(1)
	return f.fn(ctx, partial)
}

func staticTier(name string, items []string, err error) *fakeTier {
	return &fakeTier{name: name, fn: func(context.Context, string) ([]string, error) {
		return items, err
	}}
}

func TestResolve_FirstNonEmptyTierWins(t *testing.T) {
	remote := staticTier("remote", []string{"what objects are here?"}, nil)
	local := staticTier("local", []string{"unused"}, nil)

	r := NewResolver(time.Second, 0, remote, local)
	got := r.Resolve(context.Background(), "what obj")

	if diff := cmp.Diff([]string{"what objects are here?"}, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if local.calls.Load() != 0 {
		t.Error("local tier called after remote tier succeeded")
	}
}

func TestResolve_FallsThroughOnErrorAndEmpty(t *testing.T) {
	remote := staticTier("remote", nil, errors.New("connection refused"))
	local := staticTier("local", []string{}, nil)

	r := NewResolver(time.Second, 0, remote, local)
	got := r.Resolve(context.Background(), "what obj")

	if len(got) == 0 || got[0] != "What objects are in this image?" {
		t.Errorf("Resolve = %v, want pattern tier result", got)
	}
	if remote.calls.Load() != 1 || local.calls.Load() != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", remote.calls.Load(), local.calls.Load())
	}
}

func TestResolve_NoTiersUsesPatterns(t *testing.T) {
	r := NewResolver(0, 0)
	got := r.Resolve(context.Background(), "xyz123")
	want := []string{
		"xyz123 in this image?",
		"xyz123 in the foreground?",
		"xyz123 in the background?",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_TierTimeoutFallsThrough(t *testing.T) {
	hung := &fakeTier{name: "remote", fn: func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	local := staticTier("local", []string{"from local"}, nil)

	r := NewResolver(20*time.Millisecond, 0, hung, local)

	start := time.Now()
	got := r.Resolve(context.Background(), "what obj")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Resolve took %v with a hung tier", elapsed)
	}
	if diff := cmp.Diff([]string{"from local"}, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_CancelledStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := &fakeTier{name: "remote", fn: func(context.Context, string) ([]string, error) {
		cancel()
		return nil, context.Canceled
	}}
	local := staticTier("local", []string{"late"}, nil)

	r := NewResolver(time.Second, 0, remote, local)
	if got := r.Resolve(ctx, "what obj"); got != nil {
		t.Errorf("Resolve after cancel = %v, want nil", got)
	}
	if local.calls.Load() != 0 {
		t.Error("local tier called after cancellation")
	}
}

func TestResolve_NormalizesTierOutput(t *testing.T) {
	local := staticTier("local", []string{"a?", "a?", "b?", "c?", "d?"}, nil)
	r := NewResolver(time.Second, 0, local)

	got := r.Resolve(context.Background(), "abc")
	if diff := cmp.Diff([]string{"a?", "b?", "c?"}, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Cache(t *testing.T) {
	remote := staticTier("remote", []string{"What colors dominate?"}, nil)
	r := NewResolver(time.Second, 8, remote)

	first := r.Resolve(context.Background(), "What col")
	second := r.Resolve(context.Background(), "what col")

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs (-first +second):\n%s", diff)
	}
	if n := remote.calls.Load(); n != 1 {
		t.Errorf("remote calls = %d, want 1", n)
	}

	// Mutating a returned slice must not poison the cache.
	second[0] = "mutated"
	if third := r.Resolve(context.Background(), "what col"); third[0] != "What colors dominate?" {
		t.Errorf("cache returned mutated slice: %v", third)
	}
}

func TestResolve_FailuresNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	remote := &fakeTier{name: "remote", fn: func(context.Context, string) ([]string, error) {
		if fail.Load() {
			return nil, errors.New("down")
		}
		return []string{"what a view this is"}, nil
	}}
	r := NewResolver(time.Second, 8, remote)

	r.Resolve(context.Background(), "what a")
	fail.Store(false)
	got := r.Resolve(context.Background(), "what a")
	if diff := cmp.Diff([]string{"what a view this is"}, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestTiers(t *testing.T) {
	r := NewResolver(time.Second, 0, staticTier("remote", nil, nil), staticTier("local", nil, nil))
	if diff := cmp.Diff([]string{"remote", "local"}, r.Tiers()); diff != "" {
		t.Errorf("Tiers mismatch (-want +got):\n%s", diff)
	}
}

package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/kalambet/imgask/internal/selection"
)

// fakeClock records scheduled callbacks so tests decide when they fire.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// live returns timers that have not been stopped or fired.
func (c *fakeClock) live() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

func (c *fakeClock) all() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

// fire runs t's callback on the calling goroutine.
func (c *fakeClock) fire(t *fakeTimer) {
	c.mu.Lock()
	t.stopped = true
	c.mu.Unlock()
	t.f()
}

// fireLive fires every timer that is still scheduled.
func (c *fakeClock) fireLive() {
	for _, t := range c.live() {
		c.fire(t)
	}
}

// fakeSource implements Source with a function field and records calls.
type fakeSource struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, partial string) []string
}

func (f *fakeSource) Resolve(ctx context.Context, partial string) []string {
	f.mu.Lock()
	f.calls = append(f.calls, partial)
	f.mu.Unlock()
	return f.fn(ctx, partial)
}

func (f *fakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func echoSource() *fakeSource {
	return &fakeSource{fn: func(_ context.Context, partial string) []string {
		return []string{partial + " one?", partial + " two?"}
	}}
}

func newTestController(src Source, opts ...Option) (*Controller, *fakeClock) {
	clock := &fakeClock{}
	opts = append([]Option{WithAfterFunc(clock.AfterFunc)}, opts...)
	return NewController(src, opts...), clock
}

func TestOnTextChanged_ShortTextNoResolution(t *testing.T) {
	src := echoSource()
	c, clock := newTestController(src)
	defer c.Close()

	for _, text := range []string{"", "w", "wh", "é€"} {
		c.OnTextChanged(text)
	}
	clock.fireLive()

	if calls := src.Calls(); len(calls) != 0 {
		t.Errorf("resolve calls = %v, want none", calls)
	}
	if len(clock.all()) != 0 {
		t.Errorf("%d timers scheduled, want 0", len(clock.all()))
	}
	if s := c.State(); s.Visible || s.Loading || len(s.Items) != 0 {
		t.Errorf("State() = %+v, want empty hidden", s)
	}
}

func TestOnTextChanged_ShortTextClearsExisting(t *testing.T) {
	c, clock := newTestController(echoSource())
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()
	if !c.State().Visible {
		t.Fatal("list not visible after resolution")
	}

	c.OnTextChanged("wh")
	s := c.State()
	if s.Visible || len(s.Items) != 0 || s.Loading {
		t.Errorf("State() = %+v, want cleared", s)
	}
}

func TestOnTextChanged_DebounceBurst(t *testing.T) {
	src := echoSource()
	c, clock := newTestController(src, WithDebounce(250*time.Millisecond))
	defer c.Close()

	for _, text := range []string{"wha", "what", "what o", "what ob"} {
		c.OnTextChanged(text)
	}

	live := clock.live()
	if len(live) != 1 {
		t.Fatalf("%d live timers, want 1", len(live))
	}
	if live[0].d != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", live[0].d)
	}

	// A stale callback that raced its Stop must not resolve anything.
	clock.all()[0].f()
	if calls := src.Calls(); len(calls) != 0 {
		t.Fatalf("stale timer resolved %v", calls)
	}

	clock.fireLive()

	if diff := cmp.Diff([]string{"what ob"}, src.Calls()); diff != "" {
		t.Errorf("resolve calls mismatch (-want +got):\n%s", diff)
	}
	want := State{
		Items:         []string{"what ob one?", "what ob two?"},
		SelectedIndex: -1,
		Visible:       true,
	}
	if diff := cmp.Diff(want, c.State()); diff != "" {
		t.Errorf("State mismatch (-want +got):\n%s", diff)
	}
}

func TestResolution_SupersededInFlightIsDiscarded(t *testing.T) {
	started := make(chan string, 2)
	release := make(chan struct{})
	var firstCtx context.Context

	src := &fakeSource{}
	src.fn = func(ctx context.Context, partial string) []string {
		if partial == "what" {
			firstCtx = ctx
			started <- partial
			<-release
			return []string{"stale result"}
		}
		return []string{"fresh result"}
	}
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("what")
	timers := clock.live()

	done := make(chan struct{})
	go func() {
		clock.fire(timers[0])
		close(done)
	}()
	<-started

	if s := c.State(); !s.Loading {
		t.Errorf("Loading = false while resolution outstanding")
	}

	c.OnTextChanged("what is")
	if firstCtx.Err() == nil {
		t.Error("in-flight resolution was not cancelled")
	}
	clock.fireLive()

	close(release)
	<-done

	want := []string{"fresh result"}
	if diff := cmp.Diff(want, c.State().Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestResolution_StaleItemsStayWhileLoading(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{}
	src.fn = func(ctx context.Context, partial string) []string {
		if partial == "what is" {
			close(started)
			<-block
		}
		return []string{partial + "?"}
	}
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()

	c.OnTextChanged("what is")
	done := make(chan struct{})
	go func() {
		clock.fireLive()
		close(done)
	}()
	<-started

	s := c.State()
	if !s.Loading || !s.Visible {
		t.Errorf("State() = %+v, want loading with stale items visible", s)
	}
	if diff := cmp.Diff([]string{"what?"}, s.Items); diff != "" {
		t.Errorf("stale Items mismatch (-want +got):\n%s", diff)
	}

	close(block)
	<-done
	if got := c.State(); got.Loading || got.Items[0] != "what is?" {
		t.Errorf("State() = %+v after resolution", got)
	}
}

func TestResolution_EmptyResultHides(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, string) []string { return nil }}
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("qqq")
	clock.fireLive()

	if s := c.State(); s.Visible || s.Loading {
		t.Errorf("State() = %+v, want hidden, not loading", s)
	}
}

func TestNavigateAndCommit(t *testing.T) {
	src := &fakeSource{fn: func(context.Context, string) []string {
		return []string{"a?", "b?", "b?", "c?", "d?"}
	}}
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("abc")
	clock.fireLive()

	if diff := cmp.Diff([]string{"a?", "b?", "c?"}, c.State().Items); diff != "" {
		t.Fatalf("Items mismatch (-want +got):\n%s", diff)
	}

	c.Navigate(selection.Down)
	c.Navigate(selection.Down)
	c.Navigate(selection.Down)
	c.Navigate(selection.Down)
	if idx := c.State().SelectedIndex; idx != -1 {
		t.Fatalf("SelectedIndex after 4 downs = %d, want -1", idx)
	}
	c.Navigate(selection.Up)
	if idx := c.State().SelectedIndex; idx != 2 {
		t.Fatalf("SelectedIndex after up = %d, want 2", idx)
	}

	got, ok := c.Commit()
	if !ok || got != "c?" {
		t.Errorf("Commit() = (%q, %v), want (%q, true)", got, ok, "c?")
	}
	s := c.State()
	if s.Visible || s.SelectedIndex != -1 {
		t.Errorf("State() after commit = %+v", s)
	}
	if c.Navigate(selection.Down) {
		t.Error("Navigate on hidden list reported a change")
	}
}

func TestCommit_NothingSelected(t *testing.T) {
	c, clock := newTestController(echoSource())
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()

	if got, ok := c.Commit(); ok || got != "" {
		t.Errorf("Commit() = (%q, %v), want (\"\", false)", got, ok)
	}
	if c.State().Visible {
		t.Error("list still visible")
	}
	if _, ok := c.CommitAt(7); ok {
		t.Error("CommitAt(7) succeeded on a 2 item list")
	}
}

func TestCommitAt(t *testing.T) {
	c, clock := newTestController(echoSource())
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()

	if got, ok := c.CommitAt(1); !ok || got != "what two?" {
		t.Errorf("CommitAt(1) = (%q, %v)", got, ok)
	}
}

func TestCommit_CancelsPendingTimer(t *testing.T) {
	src := echoSource()
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()
	c.OnTextChanged("what i")
	pending := clock.live()
	if len(pending) != 1 {
		t.Fatalf("%d live timers, want 1", len(pending))
	}

	c.Navigate(selection.Down)
	if got, ok := c.Commit(); !ok || got != "what one?" {
		t.Fatalf("Commit() = (%q, %v)", got, ok)
	}
	if n := len(clock.live()); n != 0 {
		t.Errorf("%d live timers after commit, want 0", n)
	}

	// A callback that raced its Stop must not reopen the list.
	pending[0].f()

	if diff := cmp.Diff([]string{"what"}, src.Calls()); diff != "" {
		t.Errorf("resolve calls mismatch (-want +got):\n%s", diff)
	}
	if s := c.State(); s.Visible || s.Loading {
		t.Errorf("State() = %+v, want hidden after commit", s)
	}
}

func TestCommitAt_CancelsInFlightResolution(t *testing.T) {
	started := make(chan context.Context, 1)
	release := make(chan struct{})
	src := &fakeSource{}
	src.fn = func(ctx context.Context, partial string) []string {
		if partial == "what is" {
			started <- ctx
			<-release
			return []string{"late?"}
		}
		return []string{partial + "?"}
	}
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()
	c.OnTextChanged("what is")
	done := make(chan struct{})
	go func() {
		clock.fireLive()
		close(done)
	}()
	inflight := <-started

	if got, ok := c.CommitAt(0); !ok || got != "what?" {
		t.Fatalf("CommitAt(0) = (%q, %v)", got, ok)
	}
	if inflight.Err() == nil {
		t.Error("in-flight resolution was not cancelled")
	}
	if s := c.State(); s.Visible || s.Loading {
		t.Errorf("State() = %+v right after commit", s)
	}

	close(release)
	<-done
	if s := c.State(); s.Visible || s.Loading {
		t.Errorf("State() = %+v after late result, want hidden", s)
	}
}

func TestOnTextChanged_SupersedingClearsLoading(t *testing.T) {
	var mu sync.Mutex
	var states []State
	started := make(chan struct{})
	release := make(chan struct{})
	src := &fakeSource{}
	src.fn = func(ctx context.Context, partial string) []string {
		if partial == "what" {
			close(started)
			<-release
		}
		return []string{partial + "?"}
	}
	c, clock := newTestController(src, WithOnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))
	defer c.Close()

	c.OnTextChanged("what")
	done := make(chan struct{})
	go func() {
		clock.fireLive()
		close(done)
	}()
	<-started

	c.OnTextChanged("what is")
	if c.State().Loading {
		t.Error("Loading = true during debounce with nothing in flight")
	}
	mu.Lock()
	last := states[len(states)-1]
	mu.Unlock()
	if last.Loading {
		t.Errorf("last notification = %+v, want not loading", last)
	}

	close(release)
	<-done
	clock.fireLive()
	if diff := cmp.Diff([]string{"what is?"}, c.State().Items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
}

func TestClearAndDismiss(t *testing.T) {
	src := echoSource()
	c, clock := newTestController(src)
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()

	c.Dismiss()
	s := c.State()
	if s.Visible {
		t.Error("Visible after Dismiss")
	}
	if len(s.Items) != 2 {
		t.Errorf("Dismiss dropped items: %v", s.Items)
	}

	c.OnTextChanged("what is")
	c.Clear()
	clock.fireLive()
	if calls := src.Calls(); len(calls) != 1 {
		t.Errorf("resolve calls = %v, want only the first", calls)
	}
	if s := c.State(); len(s.Items) != 0 || s.Visible {
		t.Errorf("State() after Clear = %+v", s)
	}
}

func TestOnChange(t *testing.T) {
	var mu sync.Mutex
	var states []State
	c, clock := newTestController(echoSource(), WithOnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))
	defer c.Close()

	c.OnTextChanged("what")
	clock.fireLive()

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 {
		t.Fatalf("got %d notifications, want 2 (loading, done)", len(states))
	}
	if !states[0].Loading || states[1].Loading {
		t.Errorf("notifications = %+v", states)
	}
}

func TestController_RealTimersNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan State, 8)
	c := NewController(echoSource(),
		WithDebounce(50*time.Millisecond),
		WithOnChange(func(s State) {
			if !s.Loading && s.Visible {
				done <- s
			}
		}),
	)

	c.OnTextChanged("wha")
	c.OnTextChanged("what")

	select {
	case s := <-done:
		if s.Items[0] != "what one?" {
			t.Errorf("Items = %v, want results for the last text", s.Items)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced resolution never completed")
	}

	c.OnTextChanged("what is")
	c.Close()
}

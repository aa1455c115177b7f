package suggest

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kalambet/imgask/internal/selection"
)

const (
	// DefaultDebounce is the quiet period before a resolution starts.
	DefaultDebounce = 300 * time.Millisecond

	// MinQueryLength is the shortest text, in runes, that is resolved.
	MinQueryLength = 3
)

// Source resolves partial text into suggestions. *Resolver implements it.
type Source interface {
	Resolve(ctx context.Context, partial string) []string
}

// Timer is the part of *time.Timer the controller uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is a snapshot of the suggestion list.
type State struct {
	Items         []string
	Loading       bool
	SelectedIndex int
	Visible       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithAfterFunc replaces the timer implementation.
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = f }
}

// WithOnChange registers a callback invoked with a fresh snapshot after
// every state change. It runs without the controller lock held.
func WithOnChange(f func(State)) Option {
	return func(c *Controller) { c.onChange = f }
}

// Controller debounces text changes, cancels superseded resolutions, and
// owns the suggestion state. Only the most recently requested text is ever
// reflected in State.
type Controller struct {
	source    Source
	debounce  time.Duration
	afterFunc AfterFunc
	onChange  func(State)

	ctx  context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	timer   Timer
	cancel  context.CancelFunc
	loading bool
	list    *selection.List
}

// NewController creates a controller resolving through source.
func NewController(source Source, opts ...Option) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	c := &Controller{
		source:    source,
		debounce:  DefaultDebounce,
		afterFunc: realAfterFunc,
		ctx:       ctx,
		stop:      stop,
		list:      selection.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnTextChanged schedules resolution of text. Short text clears the list
// immediately without scheduling anything.
func (c *Controller) OnTextChanged(text string) {
	c.mu.Lock()
	wasLoading := c.loading
	c.supersedeLocked()

	if utf8.RuneCountInString(text) < MinQueryLength {
		c.list.Reset()
		s := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(s)
		return
	}

	seq := c.seq
	c.timer = c.afterFunc(c.debounce, func() { c.resolve(seq, text) })
	s := c.snapshotLocked()
	c.mu.Unlock()
	if wasLoading {
		c.notify(s)
	}
}

// supersedeLocked invalidates any pending timer and in-flight resolution.
// Loading is only reported while a resolution is in flight, not during the
// debounce gap.
func (c *Controller) supersedeLocked() {
	c.seq++
	c.loading = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) resolve(seq uint64, text string) {
	c.mu.Lock()
	if seq != c.seq || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.loading = true
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)

	items := c.source.Resolve(ctx, text)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = nil
	c.loading = false
	if ctx.Err() != nil {
		c.list.Reset()
	} else {
		c.list.Replace(Normalize(items))
	}
	cancel()
	s = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)
}

// Navigate moves the selection; it reports whether anything changed.
func (c *Controller) Navigate(d selection.Direction) bool {
	c.mu.Lock()
	changed := c.list.Navigate(d)
	s := c.snapshotLocked()
	c.mu.Unlock()
	if changed {
		c.notify(s)
	}
	return changed
}

// Commit returns the selected suggestion and cancels pending work for the
// replaced text. With nothing selected it returns false and only hides the
// list.
func (c *Controller) Commit() (string, bool) {
	c.mu.Lock()
	v, ok := c.list.Commit()
	if ok {
		c.supersedeLocked()
	}
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)
	return v, ok
}

// CommitAt returns the suggestion at index i, as when it is clicked.
func (c *Controller) CommitAt(i int) (string, bool) {
	c.mu.Lock()
	v, ok := c.list.CommitAt(i)
	if ok {
		c.supersedeLocked()
	}
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)
	return v, ok
}

// Clear cancels pending work and empties the list.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.supersedeLocked()
	c.list.Reset()
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)
}

// Dismiss hides the list and cancels pending work, keeping the items.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	c.supersedeLocked()
	c.list.Hide()
	s := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(s)
}

// State returns a snapshot of the current suggestion state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels all pending and in-flight work. The controller must not be
// used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.supersedeLocked()
	c.mu.Unlock()
	c.stop()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Items:         c.list.Items(),
		Loading:       c.loading,
		SelectedIndex: c.list.Index(),
		Visible:       c.list.Visible(),
	}
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Package selection implements keyboard navigation over a short suggestion
// list. Index -1 means nothing is selected; navigation cycles through
// {-1, 0, ..., n-1} in both directions.
package selection

import "fmt"

// None is the index of the "nothing selected" state.
const None = -1

// Direction is a navigation step.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection converts user input into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q (want up or down)", s)
}

// Step returns the index reached from index by moving one step in d over a
// list of n items. Leaving either end lands on None rather than wrapping.
func Step(index, n int, d Direction) int {
	if n <= 0 {
		return None
	}
	switch d {
	case Down:
		if index == None {
			return 0
		}
		if index >= n-1 {
			return None
		}
		return index + 1
	case Up:
		if index == None {
			return n - 1
		}
		if index <= 0 {
			return None
		}
		return index - 1
	}
	return index
}

// List is the navigable view over the current suggestions. It is not safe
// for concurrent use; the owner serializes access.
type List struct {
	items   []string
	index   int
	visible bool
}

// New returns an empty, hidden list.
func New() *List {
	return &List{index: None}
}

// Replace installs a new item set. Selection always resets; the list is
// shown iff items is non-empty.
func (l *List) Replace(items []string) {
	l.items = append([]string(nil), items...)
	l.index = None
	l.visible = len(l.items) > 0
}

// Reset drops all items and hides the list.
func (l *List) Reset() {
	l.items = nil
	l.index = None
	l.visible = false
}

// Hide hides the list without touching its items.
func (l *List) Hide() {
	l.visible = false
	l.index = None
}

// Items returns a copy of the current items.
func (l *List) Items() []string {
	return append([]string(nil), l.items...)
}

// Index returns the selected index or None.
func (l *List) Index() int { return l.index }

// Visible reports whether the list is shown.
func (l *List) Visible() bool { return l.visible }

// Selected returns the selected item, if any.
func (l *List) Selected() (string, bool) {
	if l.index < 0 || l.index >= len(l.items) {
		return "", false
	}
	return l.items[l.index], true
}

// Navigate moves the selection. It is a no-op, reporting false, when the
// list is empty or hidden.
func (l *List) Navigate(d Direction) bool {
	if !l.visible || len(l.items) == 0 {
		return false
	}
	l.index = Step(l.index, len(l.items), d)
	return true
}

func (l *List) Down() bool { return l.Navigate(Down) }

func (l *List) Up() bool { return l.Navigate(Up) }

// Commit returns the selected item, resetting the selection and hiding the
// list. With nothing selected it returns false; the list is still hidden.
func (l *List) Commit() (string, bool) {
	return l.CommitAt(l.index)
}

// CommitAt commits the item at an explicit index. An out-of-range index
// returns false and only hides the list.
func (l *List) CommitAt(i int) (string, bool) {
	defer l.Hide()
	if i < 0 || i >= len(l.items) {
		return "", false
	}
	return l.items[i], true
}

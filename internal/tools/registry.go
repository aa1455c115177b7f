// Package tools holds the deterministic helpers the reasoning command can
// call: arithmetic, comparisons and text counting.
package tools

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ArgError reports arguments a tool cannot accept.
type ArgError struct {
	Tool string
	Msg  string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Msg)
}

// Func runs a tool against parsed arguments.
type Func func(args []any) (any, error)

// Tool is a named, callable helper.
type Tool struct {
	Name        string
	Description string
	Run         Func
}

// Registry looks tools up by name and keeps registration order for listing.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry creates a registry from tools. A duplicate name keeps the
// first registration.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := r.byName[t.Name]; dup {
			continue
		}
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
	return r
}

// Default returns a registry with every built-in tool.
func Default() *Registry {
	return NewRegistry(append(mathTools(), stringTools()...)...)
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Descriptions returns "name: description" lines.
func (r *Registry) Descriptions() []string {
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Name + ": " + t.Description
	}
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Call runs the named tool and formats its result.
func (r *Registry) Call(name string, args []any) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		if s := r.Closest(name); s != "" {
			return "", fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownTool, name, s)
		}
		return "", fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	v, err := t.Run(args)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// maxEditDistance bounds how different a name may be and still be offered
// as a correction.
const maxEditDistance = 3

// Closest returns the registered name nearest to name, or "" when nothing
// is close enough.
func (r *Registry) Closest(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}

	if ranks := fuzzy.RankFindNormalizedFold(name, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxEditDistance+1
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// Format renders a tool result for display.
func Format(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// Call is one parsed tool invocation.
type Call struct {
	Name string
	Args []any
	Raw  string
}

// ParseCall splits "name(args)" into its parts.
func ParseCall(raw string) (Call, error) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open <= 0 || !strings.HasSuffix(raw, ")") {
		return Call{Raw: raw}, fmt.Errorf("malformed call %q", raw)
	}
	name := strings.TrimSpace(raw[:open])
	if !isIdent(name) {
		return Call{Raw: raw}, fmt.Errorf("malformed call %q", raw)
	}
	args, err := ParseArgs(raw[open+1 : len(raw)-1])
	if err != nil {
		return Call{Name: name, Raw: raw}, &ArgError{Tool: name, Msg: err.Error()}
	}
	return Call{Name: name, Args: args, Raw: raw}, nil
}

// ParseArgs converts an argument list into values. "[a, b]" becomes a
// []float64, quoted text a string, numbers float64, and bare words stay
// strings.
func ParseArgs(s string) ([]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := parseValue(p)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func parseValue(p string) (any, error) {
	p = strings.TrimSpace(p)
	switch {
	case p == "":
		return nil, fmt.Errorf("empty argument")
	case p[0] == '[':
		if !strings.HasSuffix(p, "]") {
			return nil, fmt.Errorf("unterminated list %q", p)
		}
		return parseNumberList(p[1 : len(p)-1])
	case isQuoted(p):
		return p[1 : len(p)-1], nil
	}
	if f, err := strconv.ParseFloat(p, 64); err == nil {
		return f, nil
	}
	return p, nil
}

func parseNumberList(inner string) ([]float64, error) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return []float64{}, nil
	}
	var out []float64
	for _, item := range strings.Split(inner, ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("list item %q is not a number", item)
		}
		out = append(out, f)
	}
	return out, nil
}

// splitTopLevel splits on commas outside quotes and brackets.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	var quote rune
	depth, start := 0, 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", s)
			}
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", s)
	}
	return append(parts, s[start:]), nil
}

func isQuoted(p string) bool {
	return len(p) >= 2 && (p[0] == '"' || p[0] == '\'') && p[len(p)-1] == p[0]
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// --- argument accessors ---

func arity(tool string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return &ArgError{Tool: tool, Msg: fmt.Sprintf("takes %d argument(s), got %d", min, len(args))}
		}
		return &ArgError{Tool: tool, Msg: fmt.Sprintf("takes %d to %d arguments, got %d", min, max, len(args))}
	}
	return nil
}

func numberArg(tool string, args []any, i int) (float64, error) {
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
	}
	return 0, &ArgError{Tool: tool, Msg: fmt.Sprintf("argument %d must be a number, got %v", i+1, args[i])}
}

// textArg accepts strings and renders numbers as text.
func textArg(tool string, args []any, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case float64:
		return Format(v), nil
	}
	return "", &ArgError{Tool: tool, Msg: fmt.Sprintf("argument %d must be text, got %v", i+1, args[i])}
}

func boolArg(tool string, args []any, i int, def bool) (bool, error) {
	if i >= len(args) {
		return def, nil
	}
	switch v := args[i].(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, nil
		}
	}
	return false, &ArgError{Tool: tool, Msg: fmt.Sprintf("argument %d must be true or false, got %v", i+1, args[i])}
}

package reasoning

import (
	"strings"
)

// Section markers in a structured reply.
const (
	markerReasoning   = "REASONING:"
	markerTools       = "TOOLS_NEEDED:"
	markerFinalAnswer = "FINAL_ANSWER:"
)

// Sections are the parts of a structured model reply. Lines inside a
// section are joined with single spaces.
type Sections struct {
	Reasoning   string
	ToolsNeeded string
	FinalAnswer string
}

// Complete reports whether all three sections were present.
func (s Sections) Complete() bool {
	return s.Reasoning != "" && s.ToolsNeeded != "" && s.FinalAnswer != ""
}

// ParseSections splits raw into its sections. Text before the first marker
// is ignored.
func ParseSections(raw string) Sections {
	var parts [3][]string
	cur := -1
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#"))
		idx, rest := -1, ""
		for i, m := range []string{markerReasoning, markerTools, markerFinalAnswer} {
			if strings.HasPrefix(line, m) {
				idx, rest = i, strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(line, m), "*"))
				break
			}
		}
		if idx >= 0 {
			cur = idx
			line = rest
		}
		if cur >= 0 && line != "" {
			parts[cur] = append(parts[cur], line)
		}
	}
	return Sections{
		Reasoning:   strings.Join(parts[0], " "),
		ToolsNeeded: strings.Join(parts[1], " "),
		FinalAnswer: strings.Join(parts[2], " "),
	}
}

// ExtractCalls finds name(args) calls in a TOOLS_NEEDED section. "none"
// yields no calls. Parentheses inside quotes or nested groups stay part of
// the arguments.
func ExtractCalls(tools string) []string {
	tools = strings.TrimSpace(tools)
	if tools == "" || strings.EqualFold(strings.Trim(tools, `."'[]`), "none") {
		return nil
	}

	var calls []string
	i := 0
	for i < len(tools) {
		if !isIdentStart(tools[i]) || (i > 0 && isIdentChar(tools[i-1])) {
			i++
			continue
		}
		start := i
		for i < len(tools) && isIdentChar(tools[i]) {
			i++
		}
		j := i
		for j < len(tools) && tools[j] == ' ' {
			j++
		}
		if j >= len(tools) || tools[j] != '(' {
			continue
		}
		end := matchParen(tools, j)
		if end < 0 {
			break
		}
		calls = append(calls, tools[start:end+1])
		i = end + 1
	}
	return calls
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for k := open; k < len(s); k++ {
		c := s[k]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

package reasoning

import (
	"fmt"
	"strings"
)

const structuredTemplate = `You are an expert problem solver that uses systematic reasoning and external tools when needed.

AVAILABLE TOOLS:
%s

TASK: %s

Solve this step by step using exactly this format:

REASONING:
1. [Break the problem into logical steps]
2. [Identify what information or calculations are needed]
3. [Decide whether any tools are required and why]
4. [Plan the order of operations]

TOOLS_NEEDED:
[List the tool calls needed, one per line, or "none" if no tools are required]
Format: function_name(parameter1, parameter2, ...)

FINAL_ANSWER:
[Give the final answer, or say that the tools must run first]

Guidelines:
- Use tools for every calculation and every text count.
- Pass literal parameters: numbers as digits, text in quotes, lists as [a, b].
- Do not nest tool calls inside each other.`

// StructuredPrompt builds the first-round prompt for query.
func StructuredPrompt(query string, tools []string) string {
	lines := make([]string, len(tools))
	for i, t := range tools {
		lines[i] = "- " + t
	}
	return fmt.Sprintf(structuredTemplate, strings.Join(lines, "\n"), query)
}

// FollowUpPrompt asks for a final answer given the tool results.
func FollowUpPrompt(query, reasoning string, calls []CallResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original query: %s\n\nPrevious reasoning:\n%s\n\nTool execution results:\n", query, reasoning)
	for _, c := range calls {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	sb.WriteString("\nNow provide the final answer based on your reasoning and the tool results:\n\nFINAL_ANSWER:\n[Combine your reasoning with the tool results into the complete answer]\n")
	return sb.String()
}

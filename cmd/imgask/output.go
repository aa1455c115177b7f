package main

import (
	"fmt"
	"io"
	"os"
)

// ANSI styles for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// diag receives status lines; command results go to cmd.OutOrStdout.
var diag io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// notice writes one marked, colored line to diag.
func notice(color, mark, format string, args []any) {
	fmt.Fprintln(diag, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notice(colorGreen, "✓", format, args) }
func printError(format string, args ...any) { notice(colorRed, "✗", format, args) }
func printWarning(format string, args ...any) { notice(colorYellow, "⚠", format, args) }
func printStep(format string, args ...any) { notice(colorCyan, "→", format, args) }

// printStatus writes an indented "label: value" line.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(diag, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// printSuggestions writes a numbered suggestion list, or a dim notice when
// nothing matched.
func printSuggestions(w io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(w, colorize(colorDim, "no suggestions"))
		return
	}
	for i, s := range items {
		fmt.Fprintf(w, "%s %s\n", colorize(colorCyan, fmt.Sprintf("%d.", i+1)), s)
	}
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

package reasoning

import (
	"fmt"
	"io"
)

// Write prints r as labeled sections. The reasoning section is omitted when
// showReasoning is false.
func Write(w io.Writer, r Result, showReasoning bool) error {
	ew := &errWriter{w: w}
	if showReasoning {
		ew.printf("Reasoning:\n%s\n\n", orNone(r.Reasoning))
	}
	ew.printf("Tool calls:\n")
	if len(r.Calls) == 0 {
		ew.printf("  none\n")
	}
	for i, c := range r.Calls {
		ew.printf("  %d. %s\n", i+1, c)
	}
	ew.printf("\nFinal answer:\n%s\n", orNone(r.FinalAnswer))
	return ew.err
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

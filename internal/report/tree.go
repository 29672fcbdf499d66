package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/detest/internal/engine"
)

const indentUnit = "  "

// WriteTree writes an indented outline of the trace: one line per test,
// failure and info entry.
func WriteTree(w io.Writer, trace engine.Trace) error {
	bw := bufio.NewWriter(w)
	writeEntries(bw, trace, 0)
	return bw.Flush()
}

func writeEntries(w *bufio.Writer, trace engine.Trace, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, e := range trace {
		switch e.Kind {
		case engine.EntryTest:
			fmt.Fprintf(w, "%s%s\n", indent, e.Test)
			writeEntries(w, e.Nested, depth+1)
		case engine.EntryFailure:
			fmt.Fprintf(w, "%s%s\n", indent, failureLine(e.Failure))
		case engine.EntryInfo:
			fmt.Fprintf(w, "%sINFO %v\n", indent, e.Info)
		}
	}
}

func failureLine(f *engine.Failure) string {
	switch f.Kind {
	case engine.FailureError:
		return "ERROR " + f.Message
	case engine.FailureInvestigate:
		if f.Bind != "" {
			return "INVESTIGATE " + f.Bind
		}
		return "INVESTIGATE"
	default:
		if f.Raised != nil {
			return fmt.Sprintf("FAIL %s (raised %v)", f.Message, f.Raised)
		}
		return "FAIL " + f.Message
	}
}

// WriteStats writes a one-line summary of the stats.
func WriteStats(w io.Writer, s engine.Stats) error {
	_, err := fmt.Fprintln(w, Summary(s))
	return err
}

// Summary formats the stats as a single line.
func Summary(s engine.Stats) string {
	return fmt.Sprintf("%d passed, %d failed, %d errors in %s", s.Pass, s.Fail, s.Error, s.Time)
}

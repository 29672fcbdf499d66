// Package autorun runs a set of test definitions as a program: failures
// stream to stdout as YAML while the tests execute, and the process exits
// with the number of failures and errors (capped at 255).
package autorun

import (
	"fmt"
	"io"
	"os"

	"github.com/roach88/detest/internal/engine"
	"github.com/roach88/detest/internal/report"
)

// ExitUsage is the exit status when the definitions misuse the engine.
const ExitUsage = engine.MaxExitCode

// Run defines the tests on a fresh engine, runs them with a YAML printer on
// w and returns the exit status. Usage errors, whether raised while
// defining or while running, are written to errw and yield ExitUsage.
func Run(w, errw io.Writer, define func(e *engine.Engine), opts ...engine.Option) (code int) {
	printer := report.NewPrinter(w, report.FormatYAML)
	e := engine.New(append([]engine.Option{engine.WithReporter(printer)}, opts...)...)

	defer func() {
		if r := recover(); r != nil {
			ue, ok := r.(*engine.UsageError)
			if !ok {
				panic(r)
			}
			fmt.Fprintf(errw, "detest: %v\n", ue)
			code = ExitUsage
		}
	}()

	define(e)

	rep, err := e.Run()
	if err != nil {
		fmt.Fprintf(errw, "detest: %v\n", err)
		return ExitUsage
	}
	if err := printer.Err(); err != nil {
		fmt.Fprintf(errw, "detest: write report: %v\n", err)
		return ExitUsage
	}
	return rep.ExitCode()
}

// Main runs the definitions against stdout and stderr and exits the
// process with the resulting status.
func Main(define func(e *engine.Engine), opts ...engine.Option) {
	os.Exit(Run(os.Stdout, os.Stderr, define, opts...))
}

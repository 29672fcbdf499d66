// Package debugger provides interactive investigation of failures.
//
// Prompt pauses the run at each failure and reads commands from a liner
// line editor until the operator continues or stops the run.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/roach88/detest/internal/engine"
)

const promptText = "detest> "

// LineReader reads operator commands. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Prompt is an engine.Debugger driven by operator commands.
type Prompt struct {
	out  io.Writer
	open func() (LineReader, func() error)
}

// New creates a Prompt reading from the terminal and writing to out.
// A fresh line editor is opened for every investigation and restored
// before the run resumes.
func New(out io.Writer) *Prompt {
	return &Prompt{
		out: out,
		open: func() (LineReader, func() error) {
			ln := liner.NewLiner()
			ln.SetCtrlCAborts(true)
			return ln, ln.Close
		},
	}
}

// NewWithReader creates a Prompt reading commands from r.
func NewWithReader(out io.Writer, r LineReader) *Prompt {
	return &Prompt{
		out: out,
		open: func() (LineReader, func() error) {
			return r, func() error { return nil }
		},
	}
}

// Investigate implements engine.Debugger.
func (p *Prompt) Investigate(inv *engine.Investigation) {
	r, closeFn := p.open()
	defer closeFn()

	p.header(inv)

	for {
		line, err := r.Prompt(promptText)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintf(p.out, "read command: %v\n", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.AppendHistory(line)

		if done := p.dispatch(inv, line); done {
			return
		}
	}
}

func (p *Prompt) header(inv *engine.Investigation) {
	where := "(top level)"
	if len(inv.Path) > 0 {
		where = strings.Join(inv.Path, " / ")
	}
	fmt.Fprintf(p.out, "%s in %s\n", inv.Failure.Kind, where)
	if inv.Failure.Message != "" {
		fmt.Fprintln(p.out, inv.Failure.Message)
	}
	if inv.Failure.Code != nil {
		fmt.Fprintln(p.out, inv.Failure.Code.String())
	}
}

// dispatch runs one command and reports whether the investigation ends.
func (p *Prompt) dispatch(inv *engine.Investigation, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "c", "continue":
		return true

	case "stop":
		if inv.Stop == nil {
			fmt.Fprintln(p.out, "no run in progress")
			return false
		}
		inv.Stop()
		return true

	case "vars":
		if inv.Sandbox == nil || inv.Sandbox.Len() == 0 {
			fmt.Fprintln(p.out, "(no variables)")
			return false
		}
		for _, name := range inv.Sandbox.Names() {
			v := inv.Sandbox.Get(name)
			fmt.Fprintf(p.out, "%s = (%T) %v\n", name, v, v)
		}

	case "p", "print":
		if arg == "" {
			fmt.Fprintln(p.out, "usage: p NAME")
			return false
		}
		v, ok := lookup(inv, arg)
		if !ok {
			fmt.Fprintf(p.out, "undefined: %s\n", arg)
			return false
		}
		fmt.Fprintf(p.out, "(%T) %#v\n", v, v)

	case "path":
		for i, desc := range inv.Path {
			fmt.Fprintf(p.out, "%s%s\n", strings.Repeat("  ", i), desc)
		}

	case "bt":
		for _, frame := range inv.Failure.Call {
			fmt.Fprintln(p.out, frame)
		}

	case "code":
		if inv.Failure.Code == nil {
			fmt.Fprintln(p.out, "(source unavailable)")
			return false
		}
		fmt.Fprintln(p.out, inv.Failure.Code.String())

	case "help", "?":
		fmt.Fprint(p.out, helpText)

	default:
		fmt.Fprintf(p.out, "unknown command %q (try help)\n", cmd)
	}
	return false
}

func lookup(inv *engine.Investigation, name string) (any, bool) {
	if inv.Sandbox == nil {
		return nil, false
	}
	return inv.Sandbox.Lookup(name)
}

const helpText = `commands:
  vars        list sandbox variables
  p NAME      print one variable
  path        show the enclosing tests
  bt          show the backtrace
  code        show the source around the failure
  stop        abort the run
  c           continue the run
`

// Nop is a Debugger that does nothing.
type Nop struct{}

// Investigate implements engine.Debugger.
func (Nop) Investigate(*engine.Investigation) {}

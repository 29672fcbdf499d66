package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// snippetRadius is the number of source lines shown on each side of the
// failing line.
const snippetRadius = 5

// internalDir is the directory holding the engine's own sources. Frames
// from its non-test files are dropped from backtraces.
var internalDir = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Dir(file)
}()

type frame struct {
	file string
	line int
	fn   string
}

func (f frame) String() string {
	return fmt.Sprintf("%s:%d %s", f.file, f.line, f.fn)
}

func (f frame) internal() bool {
	if strings.HasPrefix(f.fn, "runtime.") {
		return true
	}
	return internalDir != "" &&
		filepath.Dir(f.file) == internalDir &&
		!strings.HasSuffix(f.file, "_test.go")
}

// callers returns the backtrace of the calling goroutine, innermost first,
// without runtime and engine-internal frames.
func callers(skip int) []frame {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []frame
	for {
		fr, more := frames.Next()
		f := frame{file: fr.File, line: fr.Line, fn: fr.Function}
		if !f.internal() {
			out = append(out, f)
		}
		if !more {
			break
		}
	}
	return out
}

func formatFrames(frames []frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.String()
	}
	return out
}

// snippet returns the source window around file:line, or nil when the
// source is unavailable.
func (e *Engine) snippet(file string, line int) *Snippet {
	lines, err := e.sources.Lines(file)
	if err != nil || line < 1 || line > len(lines) {
		return nil
	}

	first := max(line-snippetRadius, 1)
	last := min(line+snippetRadius, len(lines))
	return &Snippet{
		File:  file,
		First: first,
		Last:  last,
		Line:  line,
		Lines: append([]string(nil), lines[first-1:last]...),
	}
}

// fail records a failure-detail entry in the current trace, reports it
// and hands it to the debugger when debugging is enabled.
func (e *Engine) fail(kind FailureKind, message string, raised error, frames []frame) *Failure {
	f := &Failure{
		Kind:    kind,
		Message: message,
		Raised:  raised,
		Call:    formatFrames(frames),
	}

	sb := e.scope()
	if len(frames) > 0 {
		top := frames[0]
		f.Code = e.snippet(top.file, top.line)
		if sb.Len() > 0 {
			f.Bind = fmt.Sprintf("%s:%d", top.file, top.line)
			f.Vars = sb.Vars()
		}
	}

	e.trace = append(e.trace, Entry{Kind: EntryFailure, Failure: f})

	path := e.path()
	e.logger.Debug("failure recorded", "kind", kind, "path", path, "message", message)
	e.reporter.Fail(path, f)

	if e.debug && e.debugger != nil {
		inv := &Investigation{Path: path, Failure: f, Sandbox: sb}
		if e.running {
			inv.Stop = e.Stop
		}
		e.debugger.Investigate(inv)
	}

	return f
}

// debugUncaught records an error that escaped a body.
func (e *Engine) debugUncaught(err error) {
	e.debugUncaughtAt(err, callers(2))
}

func (e *Engine) debugUncaughtAt(err error, frames []frame) {
	e.stats.Error++
	e.fail(FailureError, err.Error(), nil, frames)
}

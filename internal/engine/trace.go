package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Trace is the hierarchical record of a run.
//
// Each element is a test entry (description mapped to the test's own
// trace), a failure-detail record, or an informational message.
type Trace []Entry

// EntryKind identifies what a trace entry holds.
type EntryKind int

const (
	EntryTest EntryKind = iota
	EntryFailure
	EntryInfo
)

// Entry is one element of a Trace.
type Entry struct {
	Kind EntryKind

	// Test is the description of an executed test (EntryTest).
	Test string

	// Nested is the executed test's own trace; nil when it recorded nothing.
	Nested Trace

	// Failure is the failure detail (EntryFailure).
	Failure *Failure

	// Info is an informational message (EntryInfo).
	Info any
}

// FailureKind distinguishes assertion failures from uncaught errors.
type FailureKind string

const (
	// FailureAssertion is a failed T/F/E/C assertion.
	FailureAssertion FailureKind = "assertion"

	// FailureError is a panic that escaped a test body, hook or assertion.
	FailureError FailureKind = "error"

	// FailureInvestigate is an explicit Investigate call.
	FailureInvestigate FailureKind = "investigate"
)

// Failure is the detail record of one assertion failure or uncaught error.
type Failure struct {
	Kind FailureKind

	// Message describes the failure.
	Message string

	// Raised is the error an exception assertion's body raised, if any.
	Raised error

	// Call is the backtrace leading to the failure, innermost first.
	Call []string

	// Code is the source surrounding the failure, when available.
	Code *Snippet

	// Bind is the file:line where Vars were captured.
	Bind string

	// Vars is a snapshot of the sandbox visible at the failure.
	Vars map[string]any
}

// Snippet is a window of source lines around a failure.
type Snippet struct {
	File  string
	First int
	Last  int
	Line  int
	Lines []string
}

// String renders the snippet as a listing with a "=>" marker on the
// failing line.
func (s *Snippet) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "[%d..%d] in %s", s.First, s.Last, s.File)
	width := len(fmt.Sprint(s.Last))
	for i, text := range s.Lines {
		n := s.First + i
		marker := ""
		if n == s.Line {
			marker = "=>"
		}
		fmt.Fprintf(&buf, "\n%2s %0*d  %s", marker, width, n, text)
	}
	return buf.String()
}

// MarshalYAML renders the snippet as a single block string.
func (s *Snippet) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// MarshalJSON renders the snippet as a single string.
func (s *Snippet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// failureDoc is the serialized shape of a Failure.
type failureDoc struct {
	Fail   string            `yaml:"fail" json:"fail"`
	Kind   FailureKind       `yaml:"kind" json:"kind"`
	Raised string            `yaml:"raised,omitempty" json:"raised,omitempty"`
	Call   []string          `yaml:"call,omitempty" json:"call,omitempty"`
	Code   *Snippet          `yaml:"code,omitempty" json:"code,omitempty"`
	Bind   string            `yaml:"bind,omitempty" json:"bind,omitempty"`
	Vars   map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`
}

func (f *Failure) doc() failureDoc {
	d := failureDoc{
		Fail: f.Message,
		Kind: f.Kind,
		Call: f.Call,
		Code: f.Code,
		Bind: f.Bind,
	}
	if f.Raised != nil {
		d.Raised = fmt.Sprintf("(%T) %v", f.Raised, f.Raised)
	}
	if len(f.Vars) > 0 {
		d.Vars = make(map[string]string, len(f.Vars))
		for name, v := range f.Vars {
			d.Vars[name] = fmt.Sprintf("(%T) %v", v, v)
		}
	}
	return d
}

// MarshalYAML implements yaml.Marshaler.
func (f *Failure) MarshalYAML() (interface{}, error) {
	return f.doc(), nil
}

// MarshalJSON implements json.Marshaler.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.doc())
}

func (e Entry) value() interface{} {
	switch e.Kind {
	case EntryTest:
		if len(e.Nested) == 0 {
			return map[string]interface{}{e.Test: nil}
		}
		return map[string]interface{}{e.Test: e.Nested}
	case EntryFailure:
		return e.Failure
	default:
		return e.Info
	}
}

// MarshalYAML renders a test entry as {description: nested trace}, a
// failure as its detail mapping and an info entry as its message.
func (e Entry) MarshalYAML() (interface{}, error) {
	return e.value(), nil
}

// MarshalJSON mirrors MarshalYAML.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.value())
}

// FailureAt is a failure together with the path of tests enclosing it.
type FailureAt struct {
	Path    []string
	Failure *Failure
}

// Failures flattens the trace into failures in execution order.
func (t Trace) Failures() []FailureAt {
	var out []FailureAt
	var walk func(path []string, tr Trace)
	walk = func(path []string, tr Trace) {
		for _, e := range tr {
			switch e.Kind {
			case EntryFailure:
				out = append(out, FailureAt{Path: append([]string(nil), path...), Failure: e.Failure})
			case EntryTest:
				walk(append(path, e.Test), e.Nested)
			}
		}
	}
	walk(nil, t)
	return out
}

// Find returns the nested trace of the test reached by following the
// given descriptions from the top of the trace.
func (t Trace) Find(path ...string) (Trace, bool) {
	cur := t
	for _, desc := range path {
		found := false
		for _, e := range cur {
			if e.Kind == EntryTest && e.Test == desc {
				cur, found = e.Nested, true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return cur, true
}

// Stats counts the major events of a run.
type Stats struct {
	// Time is the elapsed time of the latest run.
	Time time.Duration

	// Pass is the number of assertions that held.
	Pass int

	// Fail is the number of assertions that did not hold.
	Fail int

	// Error is the number of panics that were not rescued.
	Error int
}

type statsDoc struct {
	Time  float64 `yaml:"time" json:"time"`
	Pass  int     `yaml:"pass" json:"pass"`
	Fail  int     `yaml:"fail" json:"fail"`
	Error int     `yaml:"error" json:"error"`
}

func (s Stats) doc() statsDoc {
	return statsDoc{Time: s.Time.Seconds(), Pass: s.Pass, Fail: s.Fail, Error: s.Error}
}

// MarshalYAML renders time in seconds.
func (s Stats) MarshalYAML() (interface{}, error) {
	return s.doc(), nil
}

// MarshalJSON renders time in seconds.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

// Failed returns the combined fail and error count.
func (s Stats) Failed() int {
	return s.Fail + s.Error
}

// Report is the outcome of a run handed to reporting collaborators.
type Report struct {
	Stats Stats `yaml:"stats" json:"stats"`
	Trace Trace `yaml:"trace" json:"trace"`
}

// MaxExitCode caps the process exit status derived from a report.
const MaxExitCode = 255

// Passed reports whether the run had no failures and no errors.
func (r *Report) Passed() bool {
	return r.Stats.Failed() == 0
}

// ExitCode translates fail+error into a process exit status, capped at 255.
func (r *Report) ExitCode() int {
	return min(r.Stats.Failed(), MaxExitCode)
}

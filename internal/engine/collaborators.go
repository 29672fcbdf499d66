package engine

// Reporter consumes failures as they happen and the final report.
type Reporter interface {
	// Fail is called for every failure with the descriptions of the tests
	// enclosing it, outermost first.
	Fail(path []string, f *Failure)

	// Finish is called once at the end of every run.
	Finish(r *Report)
}

// Investigation is the context handed to a Debugger.
type Investigation struct {
	// Path lists the descriptions of the enclosing tests, outermost first.
	Path []string

	// Failure is the recorded failure detail.
	Failure *Failure

	// Sandbox is the state visible at the failure.
	Sandbox *Sandbox

	// Stop aborts the run. It is nil when no run is in progress.
	Stop func()
}

// Debugger investigates failures. Implementations may block waiting on
// an operator.
type Debugger interface {
	Investigate(inv *Investigation)
}

// SourceProvider supplies the lines of a source file for failure
// snippets. Errors are treated as "no source available".
type SourceProvider interface {
	Lines(file string) ([]string, error)
}

type nopReporter struct{}

func (nopReporter) Fail([]string, *Failure) {}
func (nopReporter) Finish(*Report)          {}

type nopSources struct{}

func (nopSources) Lines(string) ([]string, error) { return nil, nil }

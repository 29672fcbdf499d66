package engine

import (
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/detest/internal/source"
)

// Engine holds the state of one test tree and its runs.
//
// Engine is defined with fields for the suite being built, the trace
// buffer being written, the stack of executing tests and the stats
// counters. All of it is owned by the goroutine that calls Run.
//
// INVARIANTS:
//   - suite and trace always point at the innermost executing test's
//     nested suite and trace (the root ones outside a run)
//   - tests mirrors the call stack of executing test bodies
//   - pass + fail equals the number of assert/negate evaluations
type Engine struct {
	root     *Suite
	suite    *Suite
	rootSB   *Sandbox
	trace    Trace
	stats    Stats
	tests    []*Test
	shares   map[any]Block
	catchers []Symbol
	running  bool

	debug    bool
	debugger Debugger
	reporter Reporter
	sources  SourceProvider
	logger   *slog.Logger
	clock    Clock
	filter   *selector
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithDebug enables the debugger on failures.
func WithDebug(enabled bool) Option {
	return func(e *Engine) {
		e.debug = enabled
	}
}

// WithDebugger sets the collaborator invoked on failures when debugging
// is enabled. The default debugger does nothing.
func WithDebugger(d Debugger) Option {
	return func(e *Engine) {
		e.debugger = d
	}
}

// WithReporter sets the collaborator receiving live failures and the
// final report.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithSources sets the provider of source lines for failure snippets.
//
// Default: a source.FileCache reading from the local filesystem.
func WithSources(p SourceProvider) Option {
	return func(e *Engine) {
		if p == nil {
			p = nopSources{}
		}
		e.sources = p
	}
}

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock used for the elapsed-time stat.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithFilter restricts execution to tests whose slash-joined description
// path matches the glob pattern. Panics with a usage error if the pattern
// is malformed; use ValidateFilter to check user input first.
func WithFilter(pattern string) Option {
	return func(e *Engine) {
		sel, err := newSelector(pattern)
		if err != nil {
			panic(err)
		}
		e.filter = sel
	}
}

// New creates an Engine with an empty root suite.
func New(opts ...Option) *Engine {
	e := &Engine{
		rootSB:   newSandbox(""),
		shares:   make(map[any]Block),
		reporter: nopReporter{},
		sources:  source.NewFileCache(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    SystemClock{},
	}
	e.root = newSuite()
	e.suite = e.root

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Suite returns the suite currently receiving definitions.
func (e *Engine) Suite() *Suite {
	return e.suite
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.running
}

// Stats returns a copy of the stats counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Trace returns the trace buffer being written: the root trace outside a
// run, the executing test's nested trace inside one.
func (e *Engine) Trace() Trace {
	return e.trace
}

// Reset clears the stats and the trace between runs.
func (e *Engine) Reset() {
	e.stats = Stats{}
	e.trace = nil
}

// Run executes the root suite once and returns the report.
//
// Run blocks until every test has executed or Stop is called. A usage
// error raised by a test body aborts the run and is returned; the report
// then covers what executed before it. After Run the root suite, the
// shared-code registry and the source cache are cleared, so the tests
// must be defined again to run again.
func (e *Engine) Run() (*Report, error) {
	if e.running {
		return nil, newUsageError(ErrCodeAlreadyRunning, "a run is already in progress")
	}

	e.running = true
	e.logger.Info("run starting", "tests", len(e.root.tests))
	start := e.clock.Now()
	outerCatchers := e.catchers

	ended := false
	defer func() {
		// A panic start does not recover still leaves the engine reusable.
		if !ended {
			e.endRun(outerCatchers)
		}
	}()

	err := e.start()

	e.stats.Time = e.clock.Now().Sub(start)
	e.endRun(outerCatchers)
	ended = true

	report := &Report{Stats: e.stats, Trace: e.trace}
	e.logger.Info("run finished",
		"pass", e.stats.Pass,
		"fail", e.stats.Fail,
		"error", e.stats.Error,
		"elapsed", e.stats.Time,
	)
	e.reporter.Finish(report)

	return report, err
}

// endRun drops the per-run state so the engine accepts new definitions.
// catchers is the catch stack that enclosed the call to Run.
func (e *Engine) endRun(catchers []Symbol) {
	e.running = false
	e.tests = nil
	e.catchers = catchers
	e.shares = make(map[any]Block)
	e.root = newSuite()
	e.suite = e.root
	if r, ok := e.sources.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// start is the only catch point for stopSignal.
func (e *Engine) start() (err error) {
	defer func() {
		r := recover()
		switch v := r.(type) {
		case nil:
		case stopSignal:
			e.logger.Info("run stopped")
		case *UsageError:
			e.logger.Error("run aborted by usage error", "code", v.Code, "error", v.Message)
			err = v
		default:
			panic(r)
		}
	}()

	e.execute(nil)
	return nil
}

// Stop aborts the run in progress. Nothing after the call executes: no
// further hooks or tests run and Run returns normally.
//
// Panics with a NOT_RUNNING usage error when no run is in progress.
func (e *Engine) Stop() {
	if !e.running {
		panic(newUsageError(ErrCodeNotRunning, "cannot stop: no run is in progress"))
	}
	panic(stopSignal{})
}

// execute runs the current suite depth-first. path holds the
// descriptions of the executing tests.
func (e *Engine) execute(path []string) {
	suite := e.suite

	for _, b := range suite.hooks[BeforeAllHook] {
		e.call(b, e.scope())
	}

	for _, t := range suite.tests {
		testPath := append(path[:len(path):len(path)], t.Desc)
		if !e.filter.allows(testPath) {
			e.logger.Debug("test skipped by filter", "path", testPath)
			continue
		}

		for _, b := range suite.hooks[BeforeEachHook] {
			e.call(b, e.scope())
		}

		e.tests = append(e.tests, t)
		e.runTest(t, testPath)
		e.tests = e.tests[:len(e.tests)-1]

		for _, b := range suite.hooks[AfterEachHook] {
			e.call(b, e.scope())
		}
	}

	for _, b := range suite.hooks[AfterAllHook] {
		e.call(b, e.scope())
	}
}

// runTest executes one test body against a fresh nested suite and trace,
// then folds the nested trace into the outer one. The fold is deferred so
// that a Stop unwinding through this frame leaves the trace consistent.
func (e *Engine) runTest(t *Test, path []string) {
	outerSuite, outerTrace := e.suite, e.trace
	e.suite = newSuite()
	e.trace = nil

	defer func() {
		nested := e.trace
		e.suite = outerSuite
		e.trace = append(outerTrace, Entry{Kind: EntryTest, Test: t.Desc, Nested: nested})
	}()

	e.logger.Debug("test starting", "path", path, "insulated", t.Insulated())
	e.call(t.Body, e.scope())
	e.execute(path)
}

// call invokes a block, converting any escaping panic other than engine
// control flow into an uncaught-error trace entry.
func (e *Engine) call(b Block, sb *Sandbox) {
	defer func() {
		if r := recover(); r != nil {
			if isControl(r) {
				panic(r)
			}
			e.debugUncaught(asError(r))
		}
	}()

	b(sb)
}

// scope returns the sandbox of the innermost insulated executing test, or
// the root sandbox.
func (e *Engine) scope() *Sandbox {
	if sb := e.insulatedScope(); sb != nil {
		return sb
	}
	return e.rootSB
}

// insulatedScope returns the sandbox of the innermost insulated executing
// test, or nil when none is.
func (e *Engine) insulatedScope() *Sandbox {
	for i := len(e.tests) - 1; i >= 0; i-- {
		if sb := e.tests[i].Sandbox; sb != nil {
			return sb
		}
	}
	return nil
}

// path returns the descriptions of the executing tests.
func (e *Engine) path() []string {
	out := make([]string, len(e.tests))
	for i, t := range e.tests {
		out[i] = t.Desc
	}
	return out
}

// Info appends informational messages to the current trace.
func (e *Engine) Info(messages ...any) {
	for _, m := range messages {
		e.trace = append(e.trace, Entry{Kind: EntryInfo, Info: m})
	}
}

// Last returns the most recent entry of the current trace.
func (e *Engine) Last() (Entry, bool) {
	if len(e.trace) == 0 {
		return Entry{}, false
	}
	return e.trace[len(e.trace)-1], true
}

// Investigate records the current location in the trace without
// affecting stats and hands it to the debugger when debugging is enabled.
func (e *Engine) Investigate() {
	e.fail(FailureInvestigate, "", nil, callers(2))
}

// Share registers body under id. Panics with a usage error if id is
// already shared or cannot be used as a map key.
func (e *Engine) Share(id any, body Block) {
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}
	if !hashable(id) {
		panic(newUsageError(ErrCodeInvalidShareID, "identifier %#v cannot be shared under", id))
	}
	if _, exists := e.shares[id]; exists {
		panic(newUsageError(ErrCodeDuplicateShare,
			"a code block has already been shared under the identifier %#v", id))
	}
	e.shares[id] = body
}

// Inject executes the block shared under id inside the sandbox of the
// nearest insulated executing test. Panics with a NO_INSULATED_TEST usage
// error when every executing test shares the root sandbox.
func (e *Engine) Inject(id any) {
	if !hashable(id) {
		panic(newUsageError(ErrCodeInvalidShareID, "identifier %#v cannot be shared under", id))
	}
	body, ok := e.shares[id]
	if !ok {
		panic(newUsageError(ErrCodeUnknownShare, "no code block is shared under identifier %#v", id))
	}
	if len(e.tests) == 0 {
		panic(newUsageError(ErrCodeOutsideTest,
			"cannot inject code block shared under identifier %#v outside of a test", id))
	}
	sb := e.insulatedScope()
	if sb == nil {
		panic(newUsageError(ErrCodeNoInsulatedTest,
			"cannot inject code block shared under identifier %#v: no executing test is insulated", id))
	}
	body(sb)
}

// ShareAndInject registers body under id and injects it immediately.
func (e *Engine) ShareAndInject(id any, body Block) {
	e.Share(id, body)
	e.Inject(id)
}

// IsShared reports whether a block is shared under id.
func (e *Engine) IsShared(id any) bool {
	if !hashable(id) {
		return false
	}
	_, ok := e.shares[id]
	return ok
}

func hashable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

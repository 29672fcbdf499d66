package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Block is the body of a test, hook or shared code block.
// It receives the sandbox of the nearest insulated test.
type Block func(sb *Sandbox)

// HookKind selects one of a suite's four hook lists.
type HookKind int

const (
	BeforeEachHook HookKind = iota
	AfterEachHook
	BeforeAllHook
	AfterAllHook
)

// String returns the hook kind's name.
func (k HookKind) String() string {
	switch k {
	case BeforeEachHook:
		return "before_each"
	case AfterEachHook:
		return "after_each"
	case BeforeAllHook:
		return "before_all"
	case AfterAllHook:
		return "after_all"
	default:
		return fmt.Sprintf("hook(%d)", int(k))
	}
}

// Suite is an ordered collection of sibling tests plus their hooks.
//
// Hooks registered on a suite apply only to the tests directly inside it.
// A fresh Suite is created for every executing test body to collect the
// tests and hooks that body declares.
type Suite struct {
	tests []*Test
	hooks [4][]Block
}

func newSuite() *Suite {
	return &Suite{}
}

// Tests returns the suite's tests in registration order.
func (s *Suite) Tests() []*Test {
	return s.tests
}

// Hooks returns the hooks of the given kind in registration order.
func (s *Suite) Hooks(kind HookKind) []Block {
	return s.hooks[kind]
}

// Test is one node of the test tree.
type Test struct {
	// Desc is the description, joined from its parts.
	Desc string

	// Body is executed once during the run.
	Body Block

	// Sandbox isolates the body's state. Nil unless the test is insulated.
	Sandbox *Sandbox
}

// Insulated reports whether the test runs in its own sandbox.
func (t *Test) Insulated() bool {
	return t.Sandbox != nil
}

// Define appends a test to the current suite.
//
// The description parts are formatted with fmt.Sprint, joined with single
// spaces and NFC-normalized. When insulate is true the test gets a fresh
// sandbox so its state does not leak to siblings or enclosing tests.
func (e *Engine) Define(parts []any, insulate bool, body Block) {
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}

	t := &Test{Desc: joinDescription(parts), Body: body}
	if insulate {
		t.Sandbox = newSandbox(t.Desc)
	}
	e.suite.tests = append(e.suite.tests, t)
}

// Test defines a test. Tests defined outside any executing test body are
// insulated automatically; nested tests share their parent's sandbox.
func (e *Engine) Test(desc string, body Block) {
	e.Define([]any{desc}, len(e.tests) == 0, body)
}

// InsulatedTest defines a test that always runs in its own sandbox,
// regardless of nesting depth.
func (e *Engine) InsulatedTest(desc string, body Block) {
	e.Define([]any{desc}, true, body)
}

// Hook appends body to the given hook list of the current suite.
func (e *Engine) Hook(kind HookKind, body Block) {
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}
	if kind < BeforeEachHook || kind > AfterAllHook {
		panic(newUsageError(ErrCodeInvalidHook, "unknown hook kind %d", int(kind)))
	}
	e.suite.hooks[kind] = append(e.suite.hooks[kind], body)
}

// BeforeEach registers a hook run before every test in the current suite.
func (e *Engine) BeforeEach(body Block) { e.Hook(BeforeEachHook, body) }

// AfterEach registers a hook run after every test in the current suite.
func (e *Engine) AfterEach(body Block) { e.Hook(AfterEachHook, body) }

// BeforeAll registers a hook run once before the current suite's tests.
func (e *Engine) BeforeAll(body Block) { e.Hook(BeforeAllHook, body) }

// AfterAll registers a hook run once after the current suite's tests.
func (e *Engine) AfterAll(body Block) { e.Hook(AfterAllHook, body) }

func joinDescription(parts []any) string {
	words := make([]string, len(parts))
	for i, p := range parts {
		words[i] = fmt.Sprint(p)
	}
	return norm.NFC.String(strings.Join(words, " "))
}

// Package engine implements the detest nested-test execution engine.
//
// Callers build a tree of tests with before/after hooks, run it once, and
// read back pass/fail/error statistics plus a hierarchical trace of
// assertion failures keyed by test description.
//
// ARCHITECTURE:
//
// Single-Owner State:
// An Engine owns the current suite, the current trace buffer, the stack of
// executing tests and the stats counters. Everything is mutated by the
// engine's own call sequence on the caller's goroutine. An Engine is not
// safe for concurrent use; create one Engine per independent run.
//
// Execution Flow:
//  1. Test/Hook calls append to the current suite.
//  2. Run walks the suite depth-first: before-all hooks, then for each test
//     before-each hooks, the test body, the nested suite the body declared,
//     after-each hooks; finally after-all hooks.
//  3. Each test body runs against a fresh suite and trace. The nested trace
//     is folded into the parent trace under the test's description.
//  4. Panics escaping a hook or body are recorded as uncaught errors and
//     execution continues with the next hook or test.
//  5. Stop unwinds the whole run back to Run.
//
// Assertions:
//
// Three families, each in assert, negate and sample mode:
//
//	e.True(engine.Yield(func() any { return x > 0 }))
//	e.Raises(func() { parse("") }, engine.Is(ErrEmpty))
//	e.Catches("done", func() { e.Throw("done", 42) })
//
// Sample mode (SampleTrue, SampleRaises, SampleCatches) never touches stats
// and never reports failures; it is a predicate helper.
//
// Example:
//
//	e := engine.New()
//	e.Test("stack", func(sb *engine.Sandbox) {
//	    sb.Set("items", []int{})
//
//	    e.Test("starts empty", func(sb *engine.Sandbox) {
//	        e.True(engine.Value(len(sb.Get("items").([]int)) == 0))
//	    })
//	})
//	report, err := e.Run()
package engine

// Package selftest is the engine's own test suite, written with the
// engine. It is what `detest selftest` runs.
//
// Behaviour that would disturb the enclosing run (failures that are
// expected, stops, usage errors) is exercised on throwaway child engines
// whose reports are then asserted on. Everything else runs directly.
package selftest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/detest/internal/engine"
)

// Name identifies the suite in run history.
const Name = "selftest"

var errSentinel = errors.New("sentinel")

// Register defines the self-test suite on e.
func Register(e *engine.Engine) {
	e.Test("boolean assertions", func(*engine.Sandbox) { booleans(e) })
	e.Test("exception assertions", func(*engine.Sandbox) { exceptions(e) })
	e.Test("throw assertions", func(*engine.Sandbox) { throws(e) })
	e.Test("hooks", func(*engine.Sandbox) { hooks(e) })
	e.Test("insulation", func(sb *engine.Sandbox) { insulation(e, sb) })
	e.Test("shared code", func(*engine.Sandbox) { sharing(e) })
	e.Test("stop", func(*engine.Sandbox) { stopping(e) })
	e.Test("trace", func(*engine.Sandbox) { tracing(e) })
}

// child runs define on a fresh engine and returns its report and error.
func child(define func(c *engine.Engine)) (*engine.Report, error) {
	c := engine.New()
	define(c)
	return c.Run()
}

// expectStats asserts a child report's counters.
func expectStats(e *engine.Engine, r *engine.Report, pass, fail, errs int) {
	e.True(engine.Value(r.Stats.Pass == pass),
		fmt.Sprintf("pass must be %d, was %d", pass, r.Stats.Pass))
	e.True(engine.Value(r.Stats.Fail == fail),
		fmt.Sprintf("fail must be %d, was %d", fail, r.Stats.Fail))
	e.True(engine.Value(r.Stats.Error == errs),
		fmt.Sprintf("error must be %d, was %d", errs, r.Stats.Error))
}

func booleans(e *engine.Engine) {
	values := []any{nil, false, true, 0, "", []int(nil), struct{}{}}

	for _, v := range values {
		v := v
		e.Define([]any{"T and F disagree on", fmt.Sprintf("%#v", v)}, false, func(*engine.Sandbox) {
			r, err := child(func(c *engine.Engine) {
				c.Test("subject", func(*engine.Sandbox) {
					c.True(engine.Value(v))
					c.False(engine.Value(v))
				})
			})
			e.False(engine.Value(err))
			expectStats(e, r, 1, 1, 0)
		})
	}

	e.Test("returns the condition value", func(*engine.Sandbox) {
		e.True(engine.Value(e.True(engine.Value(42)) == 42))
		e.True(engine.Value(e.True(engine.Yield(func() any { return "yes" })) == "yes"))
	})

	e.Test("sample modes leave stats alone", func(*engine.Sandbox) {
		before := e.Stats()
		e.SampleTrue(engine.Value(nil))
		e.SampleFalse(engine.Value(1))
		e.SampleRaises(func() { panic(errSentinel) })
		e.SampleCatches("x", func() {})
		after := e.Stats()
		e.True(engine.Value(before.Pass == after.Pass && before.Fail == after.Fail && before.Error == after.Error))
	})

	e.Test("yield panic counts as error and yields nil", func(*engine.Sandbox) {
		r, _ := child(func(c *engine.Engine) {
			c.Test("subject", func(*engine.Sandbox) {
				c.True(engine.Yield(func() any { panic("boom") }))
			})
		})
		expectStats(e, r, 0, 1, 1)
	})
}

func exceptions(e *engine.Engine) {
	e.Test("raises a matching error", func(*engine.Sandbox) {
		err := e.Raises(func() { panic(errSentinel) }, engine.Is(errSentinel))
		e.True(engine.Value(errors.Is(err, errSentinel)))
	})

	e.Test("does not raise", func(*engine.Sandbox) {
		e.NotRaises(func() {})
	})

	cases := []struct {
		desc              string
		eval              func(c *engine.Engine)
		pass, fail, error int
	}{
		{"assert with nothing raised fails", func(c *engine.Engine) { c.Raises(func() {}) }, 0, 1, 0},
		{"assert with another error fails and errors", func(c *engine.Engine) {
			c.Raises(func() { panic("other") }, engine.Is(errSentinel))
		}, 0, 1, 1},
		{"negate with a matching error fails and errors", func(c *engine.Engine) {
			c.NotRaises(func() { panic(errSentinel) }, engine.Is(errSentinel))
		}, 0, 1, 1},
		{"negate with another error passes and errors", func(c *engine.Engine) {
			c.NotRaises(func() { panic("other") }, engine.Is(errSentinel))
		}, 1, 0, 1},
	}
	for _, tc := range cases {
		tc := tc
		e.Test(tc.desc, func(*engine.Sandbox) {
			r, _ := child(func(c *engine.Engine) {
				c.Test("subject", func(*engine.Sandbox) { tc.eval(c) })
			})
			expectStats(e, r, tc.pass, tc.fail, tc.error)
		})
	}
}

func throws(e *engine.Engine) {
	e.Test("catches the thrown value", func(*engine.Sandbox) {
		v := e.Catches("done", func() { e.Throw("done", 7) })
		e.True(engine.Value(v == 7))
	})

	e.Test("does not throw", func(*engine.Sandbox) {
		e.NotCatches("done", func() {})
	})

	e.Test("an uncaught symbol is not an error", func(*engine.Sandbox) {
		r, _ := child(func(c *engine.Engine) {
			c.Test("subject", func(*engine.Sandbox) {
				c.Catches("expected", func() { c.Throw("unexpected") })
			})
		})
		expectStats(e, r, 0, 1, 0)
	})

	e.Test("an outer symbol passes through", func(*engine.Sandbox) {
		v, ok := e.Catch("outer", func() {
			e.NotCatches("inner", func() { e.Throw("outer", "through") })
		})
		e.True(engine.Value(ok && v == "through"))
	})
}

func hooks(e *engine.Engine) {
	e.Test("run in order at two levels", func(*engine.Sandbox) {
		var events []string
		record := func(name string) engine.Block {
			return func(*engine.Sandbox) { events = append(events, name) }
		}

		_, err := child(func(c *engine.Engine) {
			c.BeforeAll(record("<<"))
			c.BeforeEach(record("<"))
			c.AfterEach(record(">"))
			c.AfterAll(record(">>"))
			c.Test("a", func(*engine.Sandbox) {
				events = append(events, "a")
				c.BeforeEach(record("a<"))
				c.AfterEach(record("a>"))
				c.Test("a1", record("a1"))
			})
			c.Test("b", record("b"))
		})
		e.False(engine.Value(err))

		want := []string{"<<", "<", "a", "a<", "a1", "a>", ">", "<", "b", ">", ">>"}
		e.True(engine.Value(slices.Equal(events, want)),
			fmt.Sprintf("hooks ran as %v", events))
	})
}

func insulation(e *engine.Engine, sb *engine.Sandbox) {
	sb.Set("seen", "outer")

	e.Test("nested tests share the parent's sandbox", func(nested *engine.Sandbox) {
		e.True(engine.Value(nested.Get("seen") == "outer"))
		nested.Set("from nested", true)
	})

	e.InsulatedTest("insulated tests start empty", func(own *engine.Sandbox) {
		e.False(engine.Value(own.Get("seen")))
		own.Set("leak", true)
	})

	e.Test("insulated state does not leak back", func(nested *engine.Sandbox) {
		e.False(engine.Value(nested.Get("leak")))
		e.True(engine.Value(nested.Get("from nested")))
	})
}

func sharing(e *engine.Engine) {
	e.Share("counter", func(sb *engine.Sandbox) {
		n, _ := sb.Get("count").(int)
		sb.Set("count", n+1)
	})

	e.Test("inject runs in the current sandbox", func(sb *engine.Sandbox) {
		e.Inject("counter")
		e.Inject("counter")
		e.True(engine.Value(sb.Get("count") == 2))
	})

	e.Test("inject finds the nearest insulated test", func(*engine.Sandbox) {
		var outer, mid *engine.Sandbox
		_, err := child(func(c *engine.Engine) {
			c.Share("mark", func(sb *engine.Sandbox) { sb.Set("hit", sb.Owner()) })
			c.Test("outer", func(sb *engine.Sandbox) {
				outer = sb
				c.InsulatedTest("mid", func(sb *engine.Sandbox) {
					mid = sb
					c.Test("leaf", func(*engine.Sandbox) { c.Inject("mark") })
				})
			})
		})
		e.False(engine.Value(err))
		e.True(engine.Value(mid != nil && mid.Get("hit") == "mid"))
		e.False(engine.Value(outer != nil && outer.Get("hit") != nil))
	})

	e.Test("inject with no insulated test is a usage error", func(*engine.Sandbox) {
		_, err := child(func(c *engine.Engine) {
			c.Share("mark", func(*engine.Sandbox) {})
			c.Define([]any{"plain"}, false, func(*engine.Sandbox) { c.Inject("mark") })
		})
		var ue *engine.UsageError
		e.True(engine.Value(errors.As(err, &ue) && ue.Code == engine.ErrCodeNoInsulatedTest))
	})

	e.Test("duplicate share is a usage error", func(*engine.Sandbox) {
		_, err := child(func(c *engine.Engine) {
			c.Share("id", func(*engine.Sandbox) {})
			c.Test("subject", func(*engine.Sandbox) {
				c.Share("id", func(*engine.Sandbox) {})
			})
		})
		e.True(engine.Value(engine.IsUsageError(err)))
	})

	e.Test("unknown share is a usage error", func(*engine.Sandbox) {
		_, err := child(func(c *engine.Engine) {
			c.Test("subject", func(*engine.Sandbox) { c.Inject("missing") })
		})
		var ue *engine.UsageError
		e.True(engine.Value(errors.As(err, &ue) && ue.Code == engine.ErrCodeUnknownShare))
	})
}

func stopping(e *engine.Engine) {
	e.Test("nothing runs after stop", func(*engine.Sandbox) {
		var ran []string
		r, err := child(func(c *engine.Engine) {
			c.AfterAll(func(*engine.Sandbox) { ran = append(ran, "after all") })
			c.Test("a", func(*engine.Sandbox) {
				c.Test("deep", func(*engine.Sandbox) {
					c.Stop()
					ran = append(ran, "deep")
				})
			})
			c.Test("b", func(*engine.Sandbox) { ran = append(ran, "b") })
		})
		e.False(engine.Value(err))
		e.True(engine.Value(len(ran) == 0), fmt.Sprintf("ran %v after stop", ran))
		expectStats(e, r, 0, 0, 0)
	})

	e.Test("stop outside a run is a usage error", func(*engine.Sandbox) {
		c := engine.New()
		var stopErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					stopErr, _ = r.(error)
				}
			}()
			c.Stop()
		}()
		e.True(engine.Value(engine.IsNotRunning(stopErr)))
	})
}

func tracing(e *engine.Engine) {
	e.Test("nests failures under test descriptions", func(*engine.Sandbox) {
		r, _ := child(func(c *engine.Engine) {
			c.Test("outer", func(*engine.Sandbox) {
				c.Test("inner", func(*engine.Sandbox) { c.True(engine.Value(nil)) })
			})
		})
		failures := r.Trace.Failures()
		e.True(engine.Value(len(failures) == 1 && slices.Equal(failures[0].Path, []string{"outer", "inner"})))
	})

	e.Test("records info messages", func(*engine.Sandbox) {
		e.Info("hello")
		last, ok := e.Last()
		e.True(engine.Value(ok && last.Info == "hello"))
	})
}

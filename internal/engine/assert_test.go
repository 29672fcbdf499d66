package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type codedError struct{ code int }

func (e *codedError) Error() string { return fmt.Sprintf("code %d", e.code) }

// runOne executes body as the only test and returns the report.
func runOne(t *testing.T, e *Engine, body Block) *Report {
	t.Helper()
	e.Test("subject", body)
	return mustRun(t, e)
}

func failureMessages(r *Report) []string {
	var out []string
	for _, fa := range r.Trace.Failures() {
		out = append(out, string(fa.Failure.Kind)+": "+fa.Failure.Message)
	}
	return out
}

func TestTruthy(t *testing.T) {
	var nilPtr *int
	var nilMap map[string]int
	var nilErr error

	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(nilPtr))
	assert.False(t, Truthy(nilMap))
	assert.False(t, Truthy(nilErr))

	assert.True(t, Truthy(true))
	assert.True(t, Truthy(0))
	assert.True(t, Truthy(""))
	assert.True(t, Truthy([]int{}))
	assert.True(t, Truthy(struct{}{}))
}

func TestTrueFalse_ExactNegation(t *testing.T) {
	values := []any{nil, false, true, 0, "", (*int)(nil), []string{"x"}}

	for _, v := range values {
		t.Run(fmt.Sprintf("%T(%v)", v, v), func(t *testing.T) {
			e := newTestEngine()
			var sampleTrue, sampleFalse bool

			report := runOne(t, e, func(*Sandbox) {
				e.True(Value(v))
				e.False(Value(v))
				sampleTrue = e.SampleTrue(Value(v))
				sampleFalse = e.SampleFalse(Value(v))
			})

			assert.Equal(t, 1, report.Stats.Pass, "exactly one of T and F passes")
			assert.Equal(t, 1, report.Stats.Fail)
			assert.NotEqual(t, sampleTrue, sampleFalse)
			assert.Equal(t, Truthy(v), sampleTrue)
		})
	}
}

func TestTrue_ReturnsConditionValue(t *testing.T) {
	e := newTestEngine()
	var got, yielded any

	runOne(t, e, func(*Sandbox) {
		got = e.True(Value(42))
		yielded = e.True(Yield(func() any { return "yes" }))
	})

	assert.Equal(t, 42, got)
	assert.Equal(t, "yes", yielded)
}

func TestTrueFalse_DefaultMessages(t *testing.T) {
	e := newTestEngine()

	report := runOne(t, e, func(*Sandbox) {
		e.True(Value(nil))
		e.False(Value(1))
		e.True(Yield(func() any { return false }))
		e.False(Yield(func() any { return true }))
		e.True(Value(nil), "explicit")
	})

	assert.Equal(t, []string{
		"assertion: condition must be true (!nil && !false)",
		"assertion: condition must be false (nil || false)",
		"assertion: block must yield true (!nil && !false)",
		"assertion: block must yield false (nil || false)",
		"assertion: explicit",
	}, failureMessages(report))
}

func TestYield_PanicRecordsErrorAndYieldsNil(t *testing.T) {
	e := newTestEngine()
	var got any = "unset"

	report := runOne(t, e, func(*Sandbox) {
		got = e.True(Yield(func() any { panic(errBoom) }))
	})

	assert.Nil(t, got)
	assert.Equal(t, 1, report.Stats.Error)
	assert.Equal(t, 1, report.Stats.Fail)
	assert.Equal(t, []string{
		"error: boom",
		"assertion: block must yield true (!nil && !false)",
	}, failureMessages(report))
}

func TestSample_NeverTouchesStats(t *testing.T) {
	e := newTestEngine()
	var results []bool

	report := runOne(t, e, func(*Sandbox) {
		results = append(results,
			e.SampleTrue(Value(nil)),
			e.SampleTrue(Yield(func() any { panic("contained") })),
			e.SampleFalse(Value(nil)),
			e.SampleRaises(func() { panic(errBoom) }, Is(errBoom)),
			e.SampleRaises(func() { panic("other") }, Is(errBoom)),
			e.SampleRaises(func() {}),
			e.SampleCatches("done", func() { e.Throw("done") }),
			e.SampleCatches("done", func() {}),
			e.SampleCatches("done", func() { panic("contained") }),
		)
	})

	assert.Equal(t, []bool{false, false, true, true, false, false, true, false, false}, results)
	assert.Equal(t, 0, report.Stats.Pass)
	assert.Equal(t, 0, report.Stats.Failed())
	assert.Empty(t, report.Trace.Failures())
}

func TestEvalTrue_MissingCondition(t *testing.T) {
	e := newTestEngine()

	ue := catchUsage(func() { e.True(Cond{}) })
	require.NotNil(t, ue)
	assert.Equal(t, ErrCodeMissingCondition, ue.Code)

	ue = catchUsage(func() { e.True(Yield(nil)) })
	require.NotNil(t, ue)
	assert.Equal(t, ErrCodeMissingCondition, ue.Code)
}

func TestRaises_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		eval     func(e *Engine)
		pass     int
		fail     int
		errors   int
		messages []string
	}{
		{
			name: "assert matching",
			eval: func(e *Engine) { e.Raises(func() { panic(errBoom) }, Is(errBoom)) },
			pass: 1,
		},
		{
			name:     "assert nothing raised",
			eval:     func(e *Engine) { e.Raises(func() {}) },
			fail:     1,
			messages: []string{"assertion: block must raise error"},
		},
		{
			name:   "assert non-matching",
			eval:   func(e *Engine) { e.Raises(func() { panic("other") }, Is(errBoom)) },
			fail:   1,
			errors: 1,
			messages: []string{
				"error: panic: other",
				"assertion: block must raise boom",
			},
		},
		{
			name: "negate nothing raised",
			eval: func(e *Engine) { e.NotRaises(func() {}) },
			pass: 1,
		},
		{
			name:   "negate matching",
			eval:   func(e *Engine) { e.NotRaises(func() { panic(errBoom) }, Is(errBoom)) },
			fail:   1,
			errors: 1,
			messages: []string{
				"error: boom",
				"assertion: block must not raise boom",
			},
		},
		{
			name:     "negate non-matching",
			eval:     func(e *Engine) { e.NotRaises(func() { panic("other") }, Is(errBoom)) },
			pass:     1,
			errors:   1,
			messages: []string{"error: panic: other"},
		},
		{
			name: "kind of",
			eval: func(e *Engine) {
				e.Raises(func() { panic(fmt.Errorf("wrapped: %w", &codedError{code: 3})) }, KindOf[*codedError]())
			},
			pass: 1,
		},
		{
			name: "several kinds",
			eval: func(e *Engine) {
				e.Raises(func() { panic("value") }, Is(errBoom), KindOf[*PanicError]())
			},
			pass: 1,
		},
		{
			name:     "custom message",
			eval:     func(e *Engine) { e.Raises(func() {}, Is(errBoom), Message("should explode")) },
			fail:     1,
			messages: []string{"assertion: should explode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			report := runOne(t, e, func(*Sandbox) { tt.eval(e) })

			assert.Equal(t, tt.pass, report.Stats.Pass, "pass")
			assert.Equal(t, tt.fail, report.Stats.Fail, "fail")
			assert.Equal(t, tt.errors, report.Stats.Error, "error")
			assert.Equal(t, tt.messages, failureMessages(report))
		})
	}
}

func TestRaises_ReturnsRaisedError(t *testing.T) {
	e := newTestEngine()
	var got, none error
	var failure *Failure

	report := runOne(t, e, func(*Sandbox) {
		got = e.Raises(func() { panic(errBoom) })
		none = e.NotRaises(func() {})
		e.Raises(func() { panic("other") }, Is(errBoom))
	})

	assert.ErrorIs(t, got, errBoom)
	assert.NoError(t, none)

	failures := report.Trace.Failures()
	require.Len(t, failures, 2)
	failure = failures[1].Failure
	var pe *PanicError
	require.ErrorAs(t, failure.Raised, &pe)
	assert.Equal(t, "other", pe.Value)
}

func TestRaises_DefaultKindName(t *testing.T) {
	assert.Equal(t, "error", AnyError.String())
	assert.Equal(t, "boom", Is(errBoom).String())
	assert.Equal(t, "*engine.codedError", KindOf[*codedError]().String())
}

func TestCatches_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		eval     func(e *Engine)
		pass     int
		fail     int
		errors   int
		messages []string
	}{
		{
			name: "assert thrown",
			eval: func(e *Engine) { e.Catches("done", func() { e.Throw("done") }) },
			pass: 1,
		},
		{
			name:     "assert not thrown",
			eval:     func(e *Engine) { e.Catches("done", func() {}) },
			fail:     1,
			messages: []string{`assertion: block must throw "done"`},
		},
		{
			name: "negate not thrown",
			eval: func(e *Engine) { e.NotCatches("done", func() {}) },
			pass: 1,
		},
		{
			name:     "negate thrown",
			eval:     func(e *Engine) { e.NotCatches("done", func() { e.Throw("done") }) },
			fail:     1,
			messages: []string{`assertion: block must not throw "done"`},
		},
		{
			name:     "throw without catch point is suppressed",
			eval:     func(e *Engine) { e.Catches("done", func() { e.Throw("elsewhere") }) },
			fail:     1,
			messages: []string{`assertion: block must throw "done"`},
		},
		{
			name:   "other panic is an error",
			eval:   func(e *Engine) { e.Catches("done", func() { panic(errBoom) }) },
			fail:   1,
			errors: 1,
			messages: []string{
				"error: boom",
				`assertion: block must throw "done"`,
			},
		},
		{
			name:     "custom message",
			eval:     func(e *Engine) { e.NotCatches("done", func() { e.Throw("done") }, "stay put") },
			fail:     1,
			messages: []string{"assertion: stay put"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			report := runOne(t, e, func(*Sandbox) { tt.eval(e) })

			assert.Equal(t, tt.pass, report.Stats.Pass, "pass")
			assert.Equal(t, tt.fail, report.Stats.Fail, "fail")
			assert.Equal(t, tt.errors, report.Stats.Error, "error")
			assert.Equal(t, tt.messages, failureMessages(report))
		})
	}
}

func TestCatches_ReturnsThrownValue(t *testing.T) {
	e := newTestEngine()
	var got, missing any

	runOne(t, e, func(*Sandbox) {
		got = e.Catches("result", func() { e.Throw("result", 42) })
		missing = e.NotCatches("result", func() {})
	})

	assert.Equal(t, 42, got)
	assert.Nil(t, missing)
}

func TestCatch_OuterSymbolPassesThrough(t *testing.T) {
	e := newTestEngine()
	var value any
	var caught, after bool

	report := runOne(t, e, func(*Sandbox) {
		value, caught = e.Catch("outer", func() {
			e.NotCatches("inner", func() { e.Throw("outer", "escaped") })
			after = true
		})
	})

	assert.True(t, caught)
	assert.Equal(t, "escaped", value)
	assert.False(t, after)
	assert.Equal(t, 0, report.Stats.Pass, "the interrupted assertion records nothing")
	assert.Equal(t, 0, report.Stats.Failed())
}

func TestCatch_OtherPanicsPropagate(t *testing.T) {
	e := newTestEngine()

	report := runOne(t, e, func(*Sandbox) {
		e.Catch("x", func() { panic(errBoom) })
	})

	assert.Equal(t, []string{"error: boom"}, failureMessages(report))
}

func TestThrow_UncaughtInBody(t *testing.T) {
	e := newTestEngine()

	report := runOne(t, e, func(*Sandbox) {
		e.Throw("nowhere", 1)
	})

	assert.Equal(t, 1, report.Stats.Error)
	assert.Equal(t, []string{`error: uncaught throw "nowhere"`}, failureMessages(report))
}

func TestThrow_MissingSymbol(t *testing.T) {
	e := newTestEngine()

	for _, fn := range []func(){
		func() { e.Throw("") },
		func() { e.Catch("", func() {}) },
		func() { e.Catches("", func() {}) },
	} {
		ue := catchUsage(fn)
		require.NotNil(t, ue)
		assert.Equal(t, ErrCodeMissingSymbol, ue.Code)
	}

	ue := catchUsage(func() { e.Catches("x", nil) })
	require.NotNil(t, ue)
	assert.Equal(t, ErrCodeMissingBody, ue.Code)

	ue = catchUsage(func() { e.Raises(nil) })
	require.NotNil(t, ue)
	assert.Equal(t, ErrCodeMissingBody, ue.Code)
}

func TestCatchers_UnwoundAfterThrow(t *testing.T) {
	e := newTestEngine()
	depth := -1

	runOne(t, e, func(*Sandbox) {
		e.Catch("a", func() {
			e.Catch("b", func() { e.Throw("a") })
		})
		depth = len(e.catchers)
	})

	assert.Equal(t, 0, depth)
}

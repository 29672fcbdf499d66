package engine

import (
	"fmt"
	"reflect"
)

// Mode selects how an assertion treats its outcome.
type Mode int

const (
	// ModeAssert passes when the expectation holds.
	ModeAssert Mode = iota

	// ModeNegate passes when the expectation does not hold.
	ModeNegate

	// ModeSample only reports whether the expectation holds. It never
	// touches stats and never records failures.
	ModeSample
)

// String returns the mode's name.
func (m Mode) String() string {
	switch m {
	case ModeAssert:
		return "assert"
	case ModeNegate:
		return "negate"
	case ModeSample:
		return "sample"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Cond is the subject of a boolean assertion: either an explicit value or
// a deferred body whose return value is tested.
type Cond struct {
	value any
	body  func() any
	set   bool
}

// Value makes a condition from an explicit value.
func Value(v any) Cond {
	return Cond{value: v, set: true}
}

// Yield makes a condition from a body evaluated by the assertion.
func Yield(body func() any) Cond {
	return Cond{body: body, set: body != nil}
}

// Truthy reports whether v counts as true: everything except nil (typed
// nil pointers, maps, slices, funcs, channels and interfaces included) and
// false.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// True asserts that the condition is truthy and returns its value.
func (e *Engine) True(c Cond, message ...string) any {
	v, _ := e.EvalTrue(ModeAssert, c, message...)
	return v
}

// False asserts that the condition is falsy and returns its value.
func (e *Engine) False(c Cond, message ...string) any {
	v, _ := e.EvalTrue(ModeNegate, c, message...)
	return v
}

// SampleTrue reports whether the condition is truthy.
func (e *Engine) SampleTrue(c Cond) bool {
	_, ok := e.EvalTrue(ModeSample, c)
	return ok
}

// SampleFalse reports whether the condition is falsy.
func (e *Engine) SampleFalse(c Cond) bool {
	return !e.SampleTrue(c)
}

// EvalTrue evaluates a boolean assertion in the given mode and returns the
// condition's value together with whether it was truthy.
//
// A yielding body that panics records an uncaught error (outside sample
// mode) and yields nil.
func (e *Engine) EvalTrue(mode Mode, c Cond, message ...string) (any, bool) {
	if !c.set {
		panic(newUsageError(ErrCodeMissingCondition, "condition or block must be given"))
	}

	msg := firstMessage(message)
	if msg == "" {
		prefix := "condition must be"
		if c.body != nil {
			prefix = "block must yield"
		}
		switch mode {
		case ModeAssert:
			msg = prefix + " true (!nil && !false)"
		case ModeNegate:
			msg = prefix + " false (nil || false)"
		}
	}

	result := c.value
	if c.body != nil {
		result = e.yield(mode, c.body)
	}
	ok := Truthy(result)

	switch mode {
	case ModeAssert:
		e.judge(ok, msg, nil, callers(2))
	case ModeNegate:
		e.judge(!ok, msg, nil, callers(2))
	}
	return result, ok
}

// yield runs a condition body, containing any panic it raises.
func (e *Engine) yield(mode Mode, body func() any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			if isControl(r) {
				panic(r)
			}
			result = nil
			if mode != ModeSample {
				e.debugUncaughtAt(asError(r), callers(3))
			}
		}
	}()
	return body()
}

// judge records a pass or a failure.
func (e *Engine) judge(passed bool, message string, raised error, frames []frame) {
	if passed {
		e.stats.Pass++
		return
	}
	e.stats.Fail++
	e.fail(FailureAssertion, message, raised, frames)
}

func firstMessage(message []string) string {
	if len(message) == 0 {
		return ""
	}
	return message[0]
}

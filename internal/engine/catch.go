package engine

import (
	"errors"
	"fmt"
)

// Symbol identifies a catch point for Throw.
type Symbol string

// Throw unwinds to the innermost enclosing catch point for sym, handing it
// the optional value. Without an enclosing catch point Throw panics with
// an *UncaughtThrowError instead.
func (e *Engine) Throw(sym Symbol, value ...any) {
	if sym == "" {
		panic(newUsageError(ErrCodeMissingSymbol, "symbol must be given"))
	}
	var v any
	if len(value) > 0 {
		v = value[0]
	}
	if !e.catching(sym) {
		panic(&UncaughtThrowError{Symbol: sym, Value: v})
	}
	panic(&thrown{symbol: sym, value: v})
}

// Catch runs body inside a catch point for sym. It returns the thrown
// value and true when body throws sym; any other panic keeps unwinding.
func (e *Engine) Catch(sym Symbol, body func()) (any, bool) {
	if sym == "" {
		panic(newUsageError(ErrCodeMissingSymbol, "symbol must be given"))
	}
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}
	return e.catchPoint(sym, body, nil)
}

// Catches asserts that body throws sym and returns the thrown value.
func (e *Engine) Catches(sym Symbol, body func(), message ...string) any {
	v, _ := e.EvalCatch(ModeAssert, sym, body, message...)
	return v
}

// NotCatches asserts that body does not throw sym.
func (e *Engine) NotCatches(sym Symbol, body func(), message ...string) any {
	v, _ := e.EvalCatch(ModeNegate, sym, body, message...)
	return v
}

// SampleCatches reports whether body throws sym.
func (e *Engine) SampleCatches(sym Symbol, body func()) bool {
	_, ok := e.EvalCatch(ModeSample, sym, body)
	return ok
}

// EvalCatch evaluates a catch assertion in the given mode. It returns the
// thrown value (nil unless caught) and whether sym was thrown.
//
// A throw of a symbol caught further out passes through without any
// outcome recorded here. A throw with no catch point at all is suppressed.
// Other panics are recorded as uncaught errors outside sample mode.
func (e *Engine) EvalCatch(mode Mode, sym Symbol, body func(), message ...string) (any, bool) {
	if sym == "" {
		panic(newUsageError(ErrCodeMissingSymbol, "symbol must be given"))
	}
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}

	msg := firstMessage(message)
	if msg == "" {
		msg = fmt.Sprintf("block must throw %q", string(sym))
		if mode == ModeNegate {
			msg = fmt.Sprintf("block must not throw %q", string(sym))
		}
	}

	value, caught := e.catchPoint(sym, body, func(err error, at []frame) {
		var ute *UncaughtThrowError
		if errors.As(err, &ute) || mode == ModeSample {
			return
		}
		e.debugUncaughtAt(err, at)
	})
	if !caught {
		value = nil
	}

	switch mode {
	case ModeAssert:
		e.judge(caught, msg, nil, callers(2))
	case ModeNegate:
		e.judge(!caught, msg, nil, callers(2))
	}
	return value, caught
}

// catchPoint runs body with sym registered as an active catch point.
// When onError is nil, panics other than a throw of sym keep unwinding;
// otherwise they are handed to onError and contained.
func (e *Engine) catchPoint(sym Symbol, body func(), onError func(error, []frame)) (value any, caught bool) {
	e.catchers = append(e.catchers, sym)
	depth := len(e.catchers)

	defer func() {
		e.catchers = e.catchers[:depth-1]

		r := recover()
		if r == nil {
			return
		}
		if t, ok := r.(*thrown); ok && t.symbol == sym {
			value, caught = t.value, true
			return
		}
		if isControl(r) || onError == nil {
			panic(r)
		}
		onError(asError(r), callers(3))
	}()

	body()
	return nil, false
}

// catching reports whether a catch point for sym is active.
func (e *Engine) catching(sym Symbol) bool {
	for i := len(e.catchers) - 1; i >= 0; i-- {
		if e.catchers[i] == sym {
			return true
		}
	}
	return false
}

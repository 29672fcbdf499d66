package engine

import (
	"errors"
	"reflect"
	"strings"
)

// RaiseOption configures an exception assertion: either a Kind the
// raised error is expected to match or a Message.
type RaiseOption interface {
	raiseOption()
}

// Kind classifies raised errors.
type Kind interface {
	RaiseOption
	Match(err error) bool
	String() string
}

// Message overrides the default failure message of an assertion.
type Message string

func (Message) raiseOption() {}

type anyKind struct{}

func (anyKind) raiseOption()         {}
func (anyKind) Match(err error) bool { return err != nil }
func (anyKind) String() string       { return "error" }

// AnyError matches every raised error. It is the default kind.
var AnyError Kind = anyKind{}

type isKind struct {
	target error
}

func (isKind) raiseOption()           {}
func (k isKind) Match(err error) bool { return errors.Is(err, k.target) }
func (k isKind) String() string       { return k.target.Error() }

// Is matches errors for which errors.Is(err, target) holds.
func Is(target error) Kind {
	return isKind{target: target}
}

type asKind[E error] struct{}

func (asKind[E]) raiseOption() {}

func (asKind[E]) Match(err error) bool {
	var target E
	return errors.As(err, &target)
}

func (asKind[E]) String() string {
	return reflect.TypeOf((*E)(nil)).Elem().String()
}

// KindOf matches errors for which errors.As finds an E in the chain.
func KindOf[E error]() Kind {
	return asKind[E]{}
}

// Raises asserts that body panics with an error matching one of the
// given kinds (AnyError when none are given) and returns that error.
func (e *Engine) Raises(body func(), opts ...RaiseOption) error {
	err, _ := e.EvalRaise(ModeAssert, body, opts...)
	return err
}

// NotRaises asserts that body does not panic with an error matching one
// of the given kinds and returns whatever it raised.
func (e *Engine) NotRaises(body func(), opts ...RaiseOption) error {
	err, _ := e.EvalRaise(ModeNegate, body, opts...)
	return err
}

// SampleRaises reports whether body panics with an error matching one of
// the given kinds.
func (e *Engine) SampleRaises(body func(), kinds ...Kind) bool {
	opts := make([]RaiseOption, len(kinds))
	for i, k := range kinds {
		opts[i] = k
	}
	_, ok := e.EvalRaise(ModeSample, body, opts...)
	return ok
}

// EvalRaise evaluates an exception assertion in the given mode and returns
// the raised error (nil when nothing was raised) together with whether it
// matched an expected kind.
//
// A raised error that does not match is always an uncaught error outside
// sample mode, in addition to the assertion's own outcome.
func (e *Engine) EvalRaise(mode Mode, body func(), opts ...RaiseOption) (error, bool) {
	if body == nil {
		panic(newUsageError(ErrCodeMissingBody, "block must be given"))
	}

	var kinds []Kind
	var msg string
	for _, opt := range opts {
		switch o := opt.(type) {
		case Kind:
			kinds = append(kinds, o)
		case Message:
			msg = string(o)
		}
	}
	if len(kinds) == 0 {
		kinds = []Kind{AnyError}
	}
	if msg == "" {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		switch mode {
		case ModeAssert:
			msg = "block must raise " + strings.Join(names, " or ")
		case ModeNegate:
			msg = "block must not raise " + strings.Join(names, " or ")
		}
	}

	raised, raisedAt := capture(body)
	if raised == nil {
		switch mode {
		case ModeAssert:
			e.judge(false, msg, nil, callers(2))
		case ModeNegate:
			e.judge(true, msg, nil, nil)
		}
		return nil, false
	}

	expected := false
	for _, k := range kinds {
		if k.Match(raised) {
			expected = true
			break
		}
	}

	switch mode {
	case ModeSample:
		return raised, expected
	case ModeAssert:
		if expected {
			e.judge(true, msg, nil, nil)
		} else {
			e.debugUncaughtAt(raised, raisedAt)
			e.judge(false, msg, raised, callers(2))
		}
	case ModeNegate:
		if expected {
			e.debugUncaughtAt(raised, raisedAt)
			e.judge(false, msg, raised, callers(2))
		} else {
			e.judge(true, msg, nil, nil)
			e.debugUncaughtAt(raised, raisedAt)
		}
	}
	return raised, expected
}

// capture runs body and returns the error it panicked with, if any, and
// the backtrace at the panic. Engine control flow keeps unwinding.
func capture(body func()) (raised error, at []frame) {
	defer func() {
		if r := recover(); r != nil {
			if isControl(r) {
				panic(r)
			}
			raised = asError(r)
			at = callers(3)
		}
	}()
	body()
	return nil, nil
}

package engine

import "time"

// Clock supplies wall-clock readings for the elapsed-time stat.
//
// Implemented by SystemClock (production) and testutil.StepClock (tests),
// which advances by a fixed step per reading so elapsed times are
// reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

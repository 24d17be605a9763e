package clock

import "time"

// Clock is the time source for session expiry, hub cache TTLs and the
// timestamps on pack events.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Func turns a closure into a Clock; tests step it by hand.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

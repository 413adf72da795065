// Package clock abstracts the time operations used by reconnect backoff so
// tests can drive them deterministically.
package clock

import "time"

// Clock is the subset of the time package the channel needs. Production code
// uses Real(); tests use Fake() and advance time explicitly.
type Clock interface {
	Now() time.Time
	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Package clock abstracts "now" so the engine's misfire and fire-time math
// can be driven by a virtual clock in tests instead of the wall clock.
package clock

import "time"

// Clock is the engine's only source of the current time. Real() wraps the
// system clock; tests supply a Virtual clock so fire-time arithmetic and
// misfire detection are deterministic.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
}

// Timer mirrors the subset of time.Timer the engine's main loop needs,
// so a virtual clock can hand back a channel it controls.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

type realClock struct{}

// Real returns the system clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTimer(d time.Duration) Timer { return &realTimer{t: time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time    { return r.t.C }
func (r *realTimer) Stop() bool             { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// Package clock is the single time authority the engine schedules against.
// Every comparison involving available_at, lease_expires_at, or expires_at
// goes through a Clock so tests can control time instead of sleeping.
package clock

import "time"

// Clock returns the current wall-clock time in epoch milliseconds.
type Clock interface {
	NowMs() int64
}

// Real is the production Clock, backed by time.Now.
type Real struct{}

func (Real) NowMs() int64 {
	return time.Now().UnixMilli()
}

// New returns the production Clock.
func New() Clock {
	return Real{}
}

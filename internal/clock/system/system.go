// Package system provides the wall clock behind job timestamps.
package system

import "time"

// Clock implements review.Clock with the process wall clock, in UTC.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC, truncated to milliseconds so job
// timestamps render the same in JSON across platforms.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

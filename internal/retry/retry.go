// Package retry holds the exponential backoff policy shared by the resolver's
// geocoding loop and the monitor's alert publishing.
package retry

import (
	"context"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait starts at Initial and doubles up to Max.
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// Default is used when a caller does not configure its own policy:
// 3 attempts, 500ms first wait, capped at 5s.
var Default = Policy{Attempts: 3, Initial: 500 * time.Millisecond, Max: 5 * time.Second}

// Normalize fills zero fields from Default.
func (p Policy) Normalize() Policy {
	if p.Attempts <= 0 {
		p.Attempts = Default.Attempts
	}
	if p.Initial <= 0 {
		p.Initial = Default.Initial
	}
	if p.Max <= 0 {
		p.Max = Default.Max
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	return p
}

// Next returns the wait that follows current.
func (p Policy) Next(current time.Duration) time.Duration {
	return sharedretry.NextBackoff(current, p.Max)
}

// Sleep waits for d on the given clock. It returns false if ctx ends first.
// Unlike the shared SleepWithContext it honors a fake clock in tests.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// Package clock provides a small seam over wall-clock time so the replay
// engine's inter-operation sleeps can be exercised deterministically in
// tests.
package clock

import "time"

// Clock is the interface the replay engine uses instead of calling
// time.Now/time.Sleep directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After notifies on the returned channel once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks the calling goroutine for d. As with time.Sleep, d may be
	// negative (the engine itself never passes one, but implementations must
	// not panic); a non-positive duration returns immediately.
	Sleep(d time.Duration)
}

package syscallrec

import "time"

// Syscall is the tagged-union member interface: every reconstructed
// operation (spec.md §4.2's table) implements it. Perform issues the real
// syscall(s) against the Context's mounted filesystem and returns however
// long they actually took, for comparison against the trace's recorded
// duration (spec.md §4.5 "Reporting").
type Syscall interface {
	// TimestampNs is the reconstructed start time of the syscall, in
	// nanoseconds since the trace's epoch (spec.md §4.2 "Finalisation").
	TimestampNs() int64
	// DurationNs is the recorded (not replayed) duration, used for the
	// replay engine's inter-syscall delay and the parser's finalisation
	// sums.
	DurationNs() int64
	// Perform executes the syscall for real and reports how long it took.
	Perform(ctx *Context) (time.Duration, error)
	// Name identifies the syscall kind for reporting (spec.md §4.5).
	Name() string
}

// base carries the two fields every variant needs and that finalisation
// sorts by, so each variant embeds it instead of repeating the accessors.
type base struct {
	TimestampNsField int64
	DurationNsField  int64
}

func (b base) TimestampNs() int64 { return b.TimestampNsField }
func (b base) DurationNs() int64  { return b.DurationNsField }

// SetTiming fills in the (timestamp, duration) pair computed by lookup
// coalescence (internal/reconstruct) after a variant's non-timing fields
// have already been set, since base is unexported and so cannot be named
// in a composite literal outside this package.
func (b *base) SetTiming(timestampNs, durationNs int64) {
	b.TimestampNsField = timestampNs
	b.DurationNsField = durationNs
}

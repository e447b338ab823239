package replay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onedata/ioreplay/internal/clock"
	"github.com/onedata/ioreplay/internal/pathmask"
	"github.com/onedata/ioreplay/internal/syscallrec"
)

// fakeSyscall is a minimal Syscall stub so engine tests don't need a real
// mounted filesystem to exercise pacing and failure handling.
type fakeSyscall struct {
	name       string
	timestamp  int64
	duration   int64
	performErr error
	performDur time.Duration
}

func (f fakeSyscall) TimestampNs() int64 { return f.timestamp }
func (f fakeSyscall) DurationNs() int64  { return f.duration }
func (f fakeSyscall) Name() string       { return f.name }
func (f fakeSyscall) Perform(*syscallrec.Context) (time.Duration, error) {
	return f.performDur, f.performErr
}

func newFakeContext() *syscallrec.Context {
	return syscallrec.NewContext("/mnt", pathmask.NewTable())
}

func TestRun_SleepsForGapBetweenSyscalls(t *testing.T) {
	clk := clock.NewFakeClock(time.Unix(0, 0))
	syscalls := []syscallrec.Syscall{
		fakeSyscall{name: "a", timestamp: 0, duration: 1_000},
		fakeSyscall{name: "b", timestamp: 10_000, duration: 1_000},
	}

	result := Run(newFakeContext(), syscalls, clk)

	require.Len(t, clk.SleptDurations(), 1)
	assert.Equal(t, 9_000*time.Nanosecond, clk.SleptDurations()[0])
	assert.Equal(t, int64(9_000), result.CPUDurationNs)
	assert.Empty(t, result.Failures)
}

func TestRun_OverlappingSyscallsFallBackToStartGap(t *testing.T) {
	clk := clock.NewFakeClock(time.Unix(0, 0))
	syscalls := []syscallrec.Syscall{
		fakeSyscall{name: "a", timestamp: 0, duration: 50_000},
		fakeSyscall{name: "b", timestamp: 10_000, duration: 0},
	}

	result := Run(newFakeContext(), syscalls, clk)

	assert.Equal(t, int64(10_000), result.CPUDurationNs)
	assert.Equal(t, []time.Duration{10_000 * time.Nanosecond}, clk.SleptDurations(), "an overlap sleeps for the start-to-start gap")
}

func TestRun_FailureSkipsSleepAndIsRecorded(t *testing.T) {
	clk := clock.NewFakeClock(time.Unix(0, 0))
	syscalls := []syscallrec.Syscall{
		fakeSyscall{name: "bad", timestamp: 0, duration: 0, performErr: errors.New("boom")},
		fakeSyscall{name: "good", timestamp: 10_000, duration: 0},
	}

	result := Run(newFakeContext(), syscalls, clk)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].Op)
	assert.Empty(t, clk.SleptDurations(), "a failed syscall must not trigger a sleep")
}

func TestRun_AccumulatesIODuration(t *testing.T) {
	clk := clock.NewFakeClock(time.Unix(0, 0))
	syscalls := []syscallrec.Syscall{
		fakeSyscall{name: "a", timestamp: 0, duration: 0, performDur: 5 * time.Millisecond},
		fakeSyscall{name: "b", timestamp: 0, duration: 0, performDur: 3 * time.Millisecond},
	}

	result := Run(newFakeContext(), syscalls, clk)
	assert.Equal(t, (5*time.Millisecond + 3*time.Millisecond).Nanoseconds(), result.IODurationNs)
}

func TestOverhead_ZeroProgramDurationIsZero(t *testing.T) {
	assert.Equal(t, float64(0), Overhead(100, 0))
	assert.InDelta(t, 0.5, Overhead(50, 100), 0.0001)
}

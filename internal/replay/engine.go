// Package replay implements spec.md §4.5's Replay Engine: it walks a
// timestamp-ordered sequence of reconstructed syscalls, performs each one
// for real, and sleeps between them to approximate the original trace's
// pacing (spec.md §9 "Replay pacing" translation note).
package replay

import (
	"time"

	"github.com/onedata/ioreplay/internal/clock"
	"github.com/onedata/ioreplay/internal/logger"
	"github.com/onedata/ioreplay/internal/syscallrec"
)

// Failure records one syscall that could not be performed. Replay does not
// stop on a failure (spec.md §7 "best-effort replay") — it logs and moves
// on to the next syscall, the way the original continues past a failed
// operation.
type Failure struct {
	Index int
	Op    string
	Err   error
}

// Result holds the replayed side of the timing comparison spec.md §4.5
// "Reporting" prints; CPUDurationNs is the total time spent sleeping
// between syscalls.
type Result struct {
	IODurationNs      int64
	CPUDurationNs     int64
	ProgramDurationNs int64
	Failures          []Failure
}

// Run performs every syscall in order, sleeping on clk between consecutive
// ones for however long the recorded timestamps imply the original gap was
// (a clock.FakeClock records but doesn't actually block, for tests). A
// syscall that fails is recorded in Failures and no sleep follows it.
func Run(ctx *syscallrec.Context, syscalls []syscallrec.Syscall, clk clock.Clock) Result {
	var result Result

	for i, sc := range syscalls {
		dur, err := sc.Perform(ctx)
		if err != nil {
			logger.Errorf("replay: %s at index %d failed: %v", sc.Name(), i, err)
			result.Failures = append(result.Failures, Failure{Index: i, Op: sc.Name(), Err: err})
			continue
		}
		result.IODurationNs += dur.Nanoseconds()

		if i+1 >= len(syscalls) {
			continue
		}
		next := syscalls[i+1]

		delay := next.TimestampNs() - (sc.TimestampNs() + sc.DurationNs())
		if delay < 0 {
			delay = next.TimestampNs() - sc.TimestampNs()
		}
		if delay < 0 {
			delay = 0
		}

		result.CPUDurationNs += delay
		clk.Sleep(time.Duration(delay))
	}

	result.ProgramDurationNs = result.IODurationNs + result.CPUDurationNs
	return result
}

// Overhead is the io/program duration ratio spec.md §4.5 reports
// alongside the recorded trace's own ratio. It returns 0 if programNs is 0
// to avoid a division by zero on an empty trace.
func Overhead(ioNs, programNs int64) float64 {
	if programNs == 0 {
		return 0
	}
	return float64(ioNs) / float64(programNs)
}

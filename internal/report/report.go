// Package report implements the two black-box reporting surfaces spec.md
// §6 names as external collaborators but leaves unspecified in detail: the
// `--dump-syscalls` listing (supplementing the original's pprint(syscalls))
// and the post-replay timing summary described in spec.md §4.5 "Reporting".
package report

import (
	"fmt"
	"io"

	"github.com/onedata/ioreplay/internal/replay"
	"github.com/onedata/ioreplay/internal/syscallrec"
)

// DumpSyscalls writes one line per syscall to w, in replay order, as
// "<index>  ts=<timestamp_ns> dur=<duration_ns> <name> <fields>", where
// <fields> is the syscall struct printed with %+v. It never returns
// an error from formatting a syscall; only the underlying writer can fail.
func DumpSyscalls(w io.Writer, syscalls []syscallrec.Syscall) error {
	for i, s := range syscalls {
		_, err := fmt.Fprintf(w, "%6d  ts=%-15d dur=%-10d %-12s %+v\n",
			i, s.TimestampNs(), s.DurationNs(), s.Name(), s)
		if err != nil {
			return fmt.Errorf("report: dump syscall %d: %w", i, err)
		}
	}
	return nil
}

// TimingReport is the spec.md §4.5 "Reporting" summary: the trace's
// recorded (original) I/O duration and wall clock against what replay
// actually measured, paired side by side as spec.md §4.5 requires.
type TimingReport struct {
	OriginalIODurationNs int64
	OriginalWallClockNs  int64
	ReplayedIODurationNs int64
	ReplayedWallClockNs  int64
	FailureCount         int
}

// OriginalOverhead is the io/wall-clock ratio of the recorded trace itself,
// using the same ratio replay.Overhead defines (spec.md §4.5; the original's
// `overhead = io_duration / prog_duration`).
func (r TimingReport) OriginalOverhead() float64 {
	return replay.Overhead(r.OriginalIODurationNs, r.OriginalWallClockNs)
}

// ReplayedOverhead is the same ratio for what was actually measured during
// replay, so the two can be compared side by side.
func (r TimingReport) ReplayedOverhead() float64 {
	return replay.Overhead(r.ReplayedIODurationNs, r.ReplayedWallClockNs)
}

// IODelta is how much more (positive) or less (negative) I/O time replay
// measured versus what the trace originally recorded.
func (r TimingReport) IODelta() int64 {
	return r.ReplayedIODurationNs - r.OriginalIODurationNs
}

// Write renders the report as a small fixed-width table, in the style of
// the original's printed summary (spec.md §4.5): original and replayed
// I/O duration, wall clock, and overhead, each paired.
func (r TimingReport) Write(w io.Writer) error {
	rows := [][2]string{
		{"original io duration (ns)", fmt.Sprintf("%d", r.OriginalIODurationNs)},
		{"replayed io duration (ns)", fmt.Sprintf("%d", r.ReplayedIODurationNs)},
		{"io delta (ns)", fmt.Sprintf("%+d", r.IODelta())},
		{"original wall clock (ns)", fmt.Sprintf("%d", r.OriginalWallClockNs)},
		{"replayed wall clock (ns)", fmt.Sprintf("%d", r.ReplayedWallClockNs)},
		{"original overhead", fmt.Sprintf("%.4f", r.OriginalOverhead())},
		{"replayed overhead", fmt.Sprintf("%.4f", r.ReplayedOverhead())},
		{"failures", fmt.Sprintf("%d", r.FailureCount)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-28s %s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("report: write timing report: %w", err)
		}
	}
	return nil
}

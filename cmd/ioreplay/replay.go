package main

import (
	"fmt"
	"io"
	"os"

	"github.com/onedata/ioreplay/internal/cfg"
	"github.com/onedata/ioreplay/internal/clock"
	"github.com/onedata/ioreplay/internal/logger"
	"github.com/onedata/ioreplay/internal/pathmask"
	"github.com/onedata/ioreplay/internal/prepare"
	"github.com/onedata/ioreplay/internal/presort"
	"github.com/onedata/ioreplay/internal/reconstruct"
	"github.com/onedata/ioreplay/internal/replay"
	"github.com/onedata/ioreplay/internal/report"
	"github.com/onedata/ioreplay/internal/syscallrec"
)

// runReplay drives the full pipeline spec.md §6 describes: optional
// pre-sort, trace parsing (fatal on a malformed mount line or an unreadable
// file), optional environment preparation, optional syscall dump, and
// optional replay with an optional timing report — all gated by config's
// toggles. A nil mount path (config.Replay.MountPath == "") means dry run:
// parse only, matching spec.md §6 "absent ⇒ dry run".
func runReplay(out io.Writer, config cfg.Config) error {
	if config.Trace.Presort {
		opts := presort.Options{ChunkSize: config.Trace.PresortChunk}
		if err := presort.Sort(config.Trace.Path, opts); err != nil {
			return fmt.Errorf("pre-sort: %w", err)
		}
	}

	f, err := os.Open(config.Trace.Path)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	result, err := reconstruct.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing trace: %w", err)
	}
	if result.SkippedLines > 0 {
		logger.Warnf("ioreplay: skipped %d malformed record(s)", result.SkippedLines)
	}

	if config.Replay.DumpSyscalls {
		if err := report.DumpSyscalls(out, result.Syscalls); err != nil {
			return err
		}
	}

	if config.Replay.MountPath == "" {
		return nil
	}

	mask := pathmask.NewTable()
	for _, m := range config.Replay.Masks {
		mask.Add(m.Original, m.Replacement)
	}
	ctx := syscallrec.NewContext(config.Replay.MountPath, mask)

	if config.Replay.PrepareEnv {
		if err := prepare.Run(ctx, result.Environment); err != nil {
			return fmt.Errorf("preparing environment: %w", err)
		}
	}

	if !config.Replay.Enabled {
		return nil
	}

	replayResult := replay.Run(ctx, result.Syscalls, clock.RealClock{})
	for _, failure := range replayResult.Failures {
		logger.Errorf("ioreplay: syscall %d (%s) failed: %v", failure.Index, failure.Op, failure.Err)
	}

	if config.Replay.EnvReport {
		timing := report.TimingReport{
			OriginalIODurationNs: result.IODurationNs,
			OriginalWallClockNs:  result.EndTimestampNs - result.StartTimestampNs,
			ReplayedIODurationNs: replayResult.IODurationNs,
			ReplayedWallClockNs:  replayResult.ProgramDurationNs,
			FailureCount:         len(replayResult.Failures),
		}
		if err := timing.Write(out); err != nil {
			return err
		}
	}

	return nil
}

// Package reconstruct implements spec.md §4.2: the per-opcode event
// dispatcher that turns a stream of tracefmt.Records into a timestamp-
// ordered sequence of syscallrec.Syscall values, maintaining the shadow
// environment and pending-lookup queue as it goes.
package reconstruct

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"

	"github.com/onedata/ioreplay/internal/logger"
	"github.com/onedata/ioreplay/internal/shadowenv"
	"github.com/onedata/ioreplay/internal/syscallrec"
	"github.com/onedata/ioreplay/internal/tracefmt"
)

// CtxSwitchDelayNs is the lookup-coalescence window (spec.md §4.2, §9
// "Open question" — fixed at 250us regardless of what any particular trace
// variant's constant is named).
const CtxSwitchDelayNs = 250_000

// MountLineError wraps a trace-level fatal error per spec.md §7: a missing
// header line, a missing or unparsable mount record (the trace's second
// line), or a failure reading the trace.
type MountLineError struct {
	Err error
}

func (e *MountLineError) Error() string { return fmt.Sprintf("mount record: %v", e.Err) }
func (e *MountLineError) Unwrap() error  { return e.Err }

// Result is everything Parse needs to hand to the replay engine and the
// final report: the ordered syscalls plus the finalisation sums spec.md
// §4.2 "Finalisation" defines.
type Result struct {
	Syscalls         []syscallrec.Syscall
	StartTimestampNs int64
	EndTimestampNs   int64
	IODurationNs     int64
	SkippedLines     int
	Environment      *shadowenv.Environment
}

// Parser holds the mutable state one trace parse accumulates: the shadow
// environment, the pending-lookup queue, and the open-handle set.
type Parser struct {
	env     *shadowenv.Environment
	pending *shadowenv.PendingLookups
	open    *shadowenv.OpenHandles

	syscalls []syscallrec.Syscall

	endTimestampNs int64
	ioDurationNs   int64
	skippedLines   int
}

// New returns a Parser with an empty shadow environment.
func New() *Parser {
	return &Parser{
		env:     shadowenv.New(),
		pending: shadowenv.NewPendingLookups(),
		open:    shadowenv.NewOpenHandles(),
	}
}

// Environment exposes the shadow environment built up during Parse, for
// internal/prepare to walk afterwards (spec.md §4.4).
func (p *Parser) Environment() *shadowenv.Environment { return p.env }

// Parse reads a full trace: a discarded header line, a mount record, then
// data records, one per line. Record-level errors are logged and skip only
// that record (spec.md §7 "Record-level recoverable"); a malformed mount
// record is fatal.
func Parse(r io.Reader) (Result, error) {
	p := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	if !scanner.Scan() {
		return Result{}, &MountLineError{Err: fmt.Errorf("trace file is empty, missing header line")}
	}
	lineNo++ // header, discarded

	if !scanner.Scan() {
		return Result{}, &MountLineError{Err: fmt.Errorf("trace file has no mount record")}
	}
	lineNo++
	mountRec, err := tracefmt.ParseLine(scanner.Text(), lineNo)
	if err != nil {
		return Result{}, &MountLineError{Err: err}
	}
	p.seedMount(mountRec)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := tracefmt.ParseLine(line, lineNo)
		if err != nil {
			logger.Errorf("reconstruct: %v", err)
			p.skippedLines++
			continue
		}
		if err := p.dispatch(rec, lineNo); err != nil {
			logger.Errorf("reconstruct: line %d: %v", lineNo, err)
			p.skippedLines++
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, &MountLineError{Err: err}
	}

	sort.SliceStable(p.syscalls, func(i, j int) bool {
		return p.syscalls[i].TimestampNs() < p.syscalls[j].TimestampNs()
	})

	var start int64
	if len(p.syscalls) > 0 {
		start = p.syscalls[0].TimestampNs()
	}

	return Result{
		Syscalls:         p.syscalls,
		StartTimestampNs: start,
		EndTimestampNs:   p.endTimestampNs,
		IODurationNs:     p.ioDurationNs,
		SkippedLines:     p.skippedLines,
		Environment:      p.env,
	}, nil
}

func (p *Parser) seedMount(rec tracefmt.Record) {
	p.env.SeedMount(rec.UUID)
}

// emit records a syscall and folds its timing into the finalisation sums
// (spec.md §4.2 "Finalisation": io_duration sums every emitted event's
// duration, lookups included, since coalescence already folded lookup
// timing into whichever syscall drained it).
func (p *Parser) emit(sc syscallrec.Syscall) {
	p.syscalls = append(p.syscalls, sc)
	p.ioDurationNs += sc.DurationNs()
	if end := sc.TimestampNs() + sc.DurationNs(); end > p.endTimestampNs {
		p.endTimestampNs = end
	}
}

// drain applies the lookup-coalescence rule on path for an event recorded
// at (timestampNs, durationNs), returning the timing the emitted syscall
// should use.
func (p *Parser) drain(path string, timestampNs, durationNs int64) (int64, int64) {
	ts, dur, _ := p.pending.Take(path, timestampNs, durationNs, CtxSwitchDelayNs)
	return ts, dur
}

func (p *Parser) dispatch(rec tracefmt.Record, lineNo int) error {
	switch rec.Op {
	case "lookup":
		return p.handleLookup(rec, lineNo)
	case "getattr":
		return p.handleGetattr(rec, lineNo)
	case "setattr":
		return p.handleSetattr(rec, lineNo)
	case "readdir":
		return p.handleReaddir(rec, lineNo)
	case "open":
		return p.handleOpen(rec, lineNo)
	case "release":
		return p.handleRelease(rec)
	case "fsync":
		return p.handleFsync(rec)
	case "flush":
		return nil // deliberately suppressed, spec.md §4.2
	case "create":
		return p.handleCreate(rec, lineNo)
	case "mkdir":
		return p.handleMk(rec, lineNo, shadowenv.KindDir)
	case "mknod":
		return p.handleMk(rec, lineNo, shadowenv.KindFile)
	case "unlink":
		return p.handleUnlink(rec, lineNo)
	case "rename":
		return p.handleRename(rec, lineNo)
	case "getxattr":
		return p.handleGetXAttr(rec, lineNo)
	case "setxattr":
		return p.handleSetXAttr(rec, lineNo)
	case "removexattr":
		return p.handleRemoveXAttr(rec, lineNo)
	case "listxattr":
		return p.handleListXAttr(rec, lineNo)
	case "read":
		return p.handleRead(rec)
	case "write":
		return p.handleWrite(rec)
	default:
		return fmt.Errorf("unrecognized operation %q", rec.Op)
	}
}

func parseIntArg(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad integer argument %q: %w", s, err)
	}
	return n, nil
}

func parseInt64Arg(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad integer argument %q: %w", s, err)
	}
	return n, nil
}

// joinPath joins a parent's virtual path with a child name using the
// trace's own path vocabulary ("/" always, independent of the host OS),
// since these paths only become real filesystem paths once resolved
// through syscallrec.Context.Resolve against the replay mount point.
func joinPath(parent, name string) string {
	return path.Join(parent, name)
}

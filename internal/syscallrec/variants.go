package syscallrec

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func measure(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// Stat replays a `getattr` event as a stat(2) call.
type Stat struct {
	base
	Path string
}

func (s Stat) Name() string { return "stat" }

func (s Stat) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		_, err := os.Stat(ctx.Resolve(s.Path))
		return err
	})
}

// setattr mask bits, per the FUSE setattr_flags layout spec.md §4.2
// documents for the `setattr` row.
const (
	SetAttrMode     = 1 << 0
	SetAttrSize     = 1 << 3
	SetAttrAtime    = 1 << 4
	SetAttrMtime    = 1 << 5
	SetAttrAtimeNow = 1 << 7
	SetAttrMtimeNow = 1 << 8
)

// SetAttr replays a `setattr` event, applying whichever of chmod/truncate/
// utime its mask selects, all under one measured duration (mirrors the
// original's single `perform` call running a list of sub-operations).
type SetAttr struct {
	base
	Path  string
	Mask  uint32
	Mode  uint32
	Size  int64
	Atime int64
	Mtime int64
}

func (s SetAttr) Name() string { return "setattr" }

func (s SetAttr) Perform(ctx *Context) (time.Duration, error) {
	path := ctx.Resolve(s.Path)
	return measure(func() error {
		if s.Mask&SetAttrMode != 0 {
			if err := os.Chmod(path, os.FileMode(s.Mode&0o7777)); err != nil {
				return err
			}
		}
		if s.Mask&SetAttrSize != 0 {
			if err := os.Truncate(path, s.Size); err != nil {
				return err
			}
		}
		switch {
		case s.Mask&(SetAttrAtimeNow|SetAttrMtimeNow) != 0:
			now := time.Now()
			if err := os.Chtimes(path, now, now); err != nil {
				return err
			}
		case s.Mask&(SetAttrAtime|SetAttrMtime) != 0:
			atime := time.Unix(s.Atime, 0)
			mtime := time.Unix(s.Mtime, 0)
			if err := os.Chtimes(path, atime, mtime); err != nil {
				return err
			}
		}
		return nil
	})
}

// Readdir replays one paginated `readdir` call, parking its directory
// iterator in the Context's ScandirCursorCache for the next call on the
// same path if more entries remain (spec.md §4.5 "Readdir replay").
type Readdir struct {
	base
	Path   string
	Offset int64
	Count  int64
}

func (r Readdir) Name() string { return "readdir" }

func (r Readdir) Perform(ctx *Context) (time.Duration, error) {
	path := ctx.Resolve(r.Path)

	var dir *os.File
	var openErr error
	if r.Offset == 0 {
		dir, openErr = os.Open(path)
		if openErr != nil {
			return 0, openErr
		}
	} else {
		parked, ok := ctx.Scandir.Pop(path, r.Offset)
		if !ok {
			return 0, &StaleCursorError{Path: path, Offset: r.Offset}
		}
		dir = parked
	}

	want := r.Count + 1
	if want > 128 {
		want = 128
	}

	start := time.Now()
	entries, readErr := dir.ReadDir(int(want))
	elapsed := time.Since(start)

	if readErr != nil && readErr != io.EOF {
		dir.Close()
		return elapsed, readErr
	}
	if readErr == io.EOF || int64(len(entries)) < want {
		dir.Close()
		return elapsed, nil
	}
	ctx.Scandir.Park(path, r.Offset+int64(len(entries)), dir)
	return elapsed, nil
}

// StaleCursorError is returned when a readdir event's offset has no parked
// iterator to resume, which means the trace and the live directory have
// diverged (e.g. the presort step reordered readdir calls on a path).
type StaleCursorError struct {
	Path   string
	Offset int64
}

func (e *StaleCursorError) Error() string {
	return "readdir: no parked cursor for " + e.Path
}

// Open replays an `open` event, recording the resulting descriptor under
// HandleID for subsequent read/write/fsync/release events.
type Open struct {
	base
	Path     string
	Flags    int
	HandleID int64
}

func (o Open) Name() string { return "open" }

func (o Open) Perform(ctx *Context) (time.Duration, error) {
	var f *os.File
	dur, err := measure(func() error {
		var openErr error
		f, openErr = os.OpenFile(ctx.Resolve(o.Path), o.Flags, 0)
		return openErr
	})
	if err == nil {
		ctx.Handles.Put(o.HandleID, f)
	}
	return dur, err
}

// Create replays a `create` event: O_CREAT open plus a fresh shadow entry
// (the shadow-entry side is handled by internal/reconstruct; this type
// only performs the real syscall).
type Create struct {
	base
	Path     string
	Flags    int
	Mode     uint32
	HandleID int64
}

func (c Create) Name() string { return "create" }

func (c Create) Perform(ctx *Context) (time.Duration, error) {
	var f *os.File
	dur, err := measure(func() error {
		var openErr error
		f, openErr = os.OpenFile(ctx.Resolve(c.Path), c.Flags|os.O_CREATE, os.FileMode(c.Mode&0o7777))
		return openErr
	})
	if err == nil {
		ctx.Handles.Put(c.HandleID, f)
	}
	return dur, err
}

// Mkdir replays a `mkdir` event.
type Mkdir struct {
	base
	Path string
	Mode uint32
}

func (m Mkdir) Name() string { return "mkdir" }

func (m Mkdir) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return os.Mkdir(ctx.Resolve(m.Path), os.FileMode(m.Mode&0o7777))
	})
}

// Mknod replays a `mknod` event (regular files and FIFOs created without
// an accompanying open, per spec.md §4.2).
type Mknod struct {
	base
	Path string
	Mode uint32
	Dev  int
}

func (m Mknod) Name() string { return "mknod" }

func (m Mknod) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return unix.Mknod(ctx.Resolve(m.Path), m.Mode, m.Dev)
	})
}

// Unlink replays an `unlink` event.
type Unlink struct {
	base
	Path string
}

func (u Unlink) Name() string { return "unlink" }

func (u Unlink) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return os.Remove(ctx.Resolve(u.Path))
	})
}

// Rmdir replays an `rmdir` event.
type Rmdir struct {
	base
	Path string
}

func (r Rmdir) Name() string { return "rmdir" }

func (r Rmdir) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return os.Remove(ctx.Resolve(r.Path))
	})
}

// Rename replays a `rename` event.
type Rename struct {
	base
	From string
	To   string
}

func (r Rename) Name() string { return "rename" }

func (r Rename) Perform(ctx *Context) (time.Duration, error) {
	return measure(func() error {
		return os.Rename(ctx.Resolve(r.From), ctx.Resolve(r.To))
	})
}

// Read replays a `read` event against the handle table.
type Read struct {
	base
	HandleID int64
	Offset   int64
	Size     int64
}

func (r Read) Name() string { return "read" }

func (r Read) Perform(ctx *Context) (time.Duration, error) {
	f, ok := ctx.Handles.Get(r.HandleID)
	if !ok {
		return 0, &UnknownHandleError{HandleID: r.HandleID}
	}
	buf := make([]byte, r.Size)
	return measure(func() error {
		_, err := f.ReadAt(buf, r.Offset)
		if err == io.EOF {
			return nil
		}
		return err
	})
}

// Write replays a `write` event. The payload content of the original
// trace is never captured, so the buffer is zero-filled (Go slices start
// zeroed, so make([]byte, n) already gives the same zero-source the
// original reads from /dev/zero for).
type Write struct {
	base
	HandleID int64
	Offset   int64
	Size     int64
}

func (w Write) Name() string { return "write" }

func (w Write) Perform(ctx *Context) (time.Duration, error) {
	f, ok := ctx.Handles.Get(w.HandleID)
	if !ok {
		return 0, &UnknownHandleError{HandleID: w.HandleID}
	}
	buf := make([]byte, w.Size)
	return measure(func() error {
		_, err := f.WriteAt(buf, w.Offset)
		return err
	})
}

// Close replays a `release` event, closing the real descriptor.
type Close struct {
	base
	HandleID int64
}

func (c Close) Name() string { return "close" }

func (c Close) Perform(ctx *Context) (time.Duration, error) {
	f, ok := ctx.Handles.Remove(c.HandleID)
	if !ok {
		return 0, &UnknownHandleError{HandleID: c.HandleID}
	}
	return measure(f.Close)
}

// Fsync replays an `fsync` event (`flush` events are dropped by the parser
// and never become an Fsync). DataOnly selects fdatasync(2)
// over fsync(2) (spec.md §4.2 "fsync" row, datasync flag).
type Fsync struct {
	base
	HandleID int64
	DataOnly bool
}

func (s Fsync) Name() string { return "fsync" }

func (s Fsync) Perform(ctx *Context) (time.Duration, error) {
	f, ok := ctx.Handles.Get(s.HandleID)
	if !ok {
		return 0, &UnknownHandleError{HandleID: s.HandleID}
	}
	return measure(func() error {
		if s.DataOnly {
			return unix.Fdatasync(int(f.Fd()))
		}
		return f.Sync()
	})
}

// UnknownHandleError is returned when a read/write/fsync/close event
// references a handle_id the replay engine never saw opened, which means
// the trace references an event dropped upstream (malformed trace or a
// presort ordering bug).
type UnknownHandleError struct {
	HandleID int64
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("replay: unknown handle_id %d", e.HandleID)
}

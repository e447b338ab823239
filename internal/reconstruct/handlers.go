package reconstruct

import (
	"github.com/pkg/xattr"

	"github.com/onedata/ioreplay/internal/shadowenv"
	"github.com/onedata/ioreplay/internal/syscallrec"
	"github.com/onedata/ioreplay/internal/tracefmt"
)

func (p *Parser) handleLookup(rec tracefmt.Record, lineNo int) error {
	parent, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}

	childName := rec.Arg(0)
	childUUID := rec.Arg(1)
	childKind := rec.Arg(2)
	childPath := joinPath(parent.Path, childName)

	if !p.env.Exists(childUUID) {
		size, err := parseInt64Arg(rec.Arg(3))
		if err != nil {
			return err
		}

		var f *shadowenv.File
		if childKind == "d" {
			f = shadowenv.NewDir(childPath, 0, 0)
		} else {
			f = shadowenv.NewFile(childPath, size)
		}
		p.env.InsertDiscovered(childUUID, f, p.env.IsMount(rec.UUID))
		parent.IncrementKnown()
		parent.DecrementUnknownClamped()
	}

	ts, dur := p.drain(parent.Path, rec.TimestampNs, rec.DurationNs)
	p.pending.Push(childPath, ts, dur)
	return nil
}

func (p *Parser) handleGetattr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)

	s := syscallrec.Stat{Path: f.Path}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleSetattr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	mask, err := parseIntArg(rec.Arg(0))
	if err != nil {
		return err
	}
	mode, err := parseIntArg(rec.Arg(1))
	if err != nil {
		return err
	}
	size, err := parseInt64Arg(rec.Arg(2))
	if err != nil {
		return err
	}
	atime, err := parseInt64Arg(rec.Arg(3))
	if err != nil {
		return err
	}
	mtime, err := parseInt64Arg(rec.Arg(4))
	if err != nil {
		return err
	}

	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.SetAttr{
		Path: f.Path, Mask: uint32(mask), Mode: uint32(mode),
		Size: size, Atime: atime, Mtime: mtime,
	}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleReaddir(rec tracefmt.Record, lineNo int) error {
	dir, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	count, err := parseIntArg(rec.Arg(0))
	if err != nil {
		return err
	}
	offset, err := parseInt64Arg(rec.Arg(1))
	if err != nil {
		return err
	}
	if offset > 0 && count == 0 {
		return nil
	}

	ts, dur := p.drain(dir.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.Readdir{Path: dir.Path, Offset: offset, Count: int64(count)}
	s.SetTiming(ts, dur)
	p.emit(s)

	if dir.Kind == shadowenv.KindDir && !p.env.IsMount(rec.UUID) {
		candidate := int(offset) + count - 2 - dir.Size.Known
		dir.RaiseUnknown(candidate)
	}
	return nil
}

func (p *Parser) handleOpen(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	flags, err := parseIntArg(rec.Arg(0))
	if err != nil {
		return err
	}
	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.Open{Path: f.Path, Flags: flags, HandleID: rec.HandleID}
	s.SetTiming(ts, dur)
	p.emit(s)
	p.open.Add(rec.HandleID)
	return nil
}

func (p *Parser) handleRelease(rec tracefmt.Record) error {
	p.open.Remove(rec.HandleID)
	s := syscallrec.Close{HandleID: rec.HandleID}
	s.SetTiming(rec.TimestampNs, rec.DurationNs)
	p.emit(s)
	return nil
}

func (p *Parser) handleFsync(rec tracefmt.Record) error {
	if !p.open.Contains(rec.HandleID) {
		return nil // Rule F: fsync-after-close is dropped.
	}
	dataOnly, err := parseIntArg(rec.Arg(0))
	if err != nil {
		return err
	}
	s := syscallrec.Fsync{HandleID: rec.HandleID, DataOnly: dataOnly != 0}
	s.SetTiming(rec.TimestampNs, rec.DurationNs)
	p.emit(s)
	return nil
}

func (p *Parser) handleCreate(rec tracefmt.Record, lineNo int) error {
	parent, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	name := rec.Arg(0)
	newUUID := rec.Arg(1)
	mode, err := parseIntArg(rec.Arg(2))
	if err != nil {
		return err
	}
	flags, err := parseIntArg(rec.Arg(3))
	if err != nil {
		return err
	}

	childPath := joinPath(parent.Path, name)
	p.env.InsertRuntime(newUUID, shadowenv.NewFile(childPath, 0))
	parent.IncrementKnown()

	ts, dur := p.drain(parent.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.Create{
		Path: childPath, Flags: flags, Mode: uint32(mode), HandleID: rec.HandleID,
	}
	s.SetTiming(ts, dur)
	p.emit(s)
	p.open.Add(rec.HandleID)
	return nil
}

func (p *Parser) handleMk(rec tracefmt.Record, lineNo int, kind shadowenv.Kind) error {
	parent, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	name := rec.Arg(0)
	newUUID := rec.Arg(1)
	mode, err := parseIntArg(rec.Arg(2))
	if err != nil {
		return err
	}

	childPath := joinPath(parent.Path, name)
	var f *shadowenv.File
	if kind == shadowenv.KindDir {
		f = shadowenv.NewDir(childPath, 0, 0)
	} else {
		f = shadowenv.NewFile(childPath, 0)
	}
	p.env.InsertRuntime(newUUID, f)
	parent.IncrementKnown()

	ts, dur := p.drain(parent.Path, rec.TimestampNs, rec.DurationNs)
	if kind == shadowenv.KindDir {
		s := syscallrec.Mkdir{Path: childPath, Mode: uint32(mode)}
		s.SetTiming(ts, dur)
		p.emit(s)
	} else {
		s := syscallrec.Mknod{Path: childPath, Mode: uint32(mode)}
		s.SetTiming(ts, dur)
		p.emit(s)
	}
	return nil
}

func (p *Parser) handleUnlink(rec tracefmt.Record, lineNo int) error {
	parent, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	targetPath := joinPath(parent.Path, rec.Arg(0))
	parent.DecrementKnown()

	ts, dur := p.drain(targetPath, rec.TimestampNs, rec.DurationNs)

	kind := shadowenv.KindFile
	if target, ok := p.env.ResolveByPath(targetPath); ok {
		kind = target.Kind
	}
	if kind == shadowenv.KindDir {
		s := syscallrec.Rmdir{Path: targetPath}
		s.SetTiming(ts, dur)
		p.emit(s)
	} else {
		s := syscallrec.Unlink{Path: targetPath}
		s.SetTiming(ts, dur)
		p.emit(s)
	}
	return nil
}

func (p *Parser) handleRename(rec tracefmt.Record, lineNo int) error {
	srcParent, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	dstParent, err := p.env.MustResolve(rec.Arg(1), lineNo)
	if err != nil {
		return err
	}
	srcPath := joinPath(srcParent.Path, rec.Arg(0))
	dstPath := joinPath(dstParent.Path, rec.Arg(2))
	newUUID := rec.Arg(3)

	srcParent.DecrementKnown()
	dstParent.IncrementKnown()

	var moved *shadowenv.File
	if src, ok := p.env.ResolveByPath(srcPath); ok && src.Kind == shadowenv.KindDir {
		moved = shadowenv.NewDir(dstPath, src.Size.Known, src.Size.Unknown)
	} else {
		var bytes int64
		if ok {
			bytes = src.FileBytes
		}
		moved = shadowenv.NewFile(dstPath, bytes)
	}
	p.env.InsertRuntime(newUUID, moved)

	ts, dur := p.drain(srcPath, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.Rename{From: srcPath, To: dstPath}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleGetXAttr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.GetXAttr{Path: f.Path, Name: rec.Arg(0)}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleSetXAttr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	name := rec.Arg(0)
	value := rec.Arg(1)
	create, err := parseIntArg(rec.Arg(2))
	if err != nil {
		return err
	}
	replace, err := parseIntArg(rec.Arg(3))
	if err != nil {
		return err
	}

	flags := 0
	switch {
	case create != 0:
		flags = xattr.XATTR_CREATE
	case replace != 0:
		flags = xattr.XATTR_REPLACE
	}

	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.SetXAttr{Path: f.Path, Name: name, Size: int64(len(value)), Flags: flags}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleRemoveXAttr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.RemoveXAttr{Path: f.Path, Name: rec.Arg(0)}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleListXAttr(rec tracefmt.Record, lineNo int) error {
	f, err := p.env.MustResolve(rec.UUID, lineNo)
	if err != nil {
		return err
	}
	ts, dur := p.drain(f.Path, rec.TimestampNs, rec.DurationNs)
	s := syscallrec.ListXAttr{Path: f.Path}
	s.SetTiming(ts, dur)
	p.emit(s)
	return nil
}

func (p *Parser) handleRead(rec tracefmt.Record) error {
	offset, err := parseInt64Arg(rec.Arg(0))
	if err != nil {
		return err
	}
	size, err := parseInt64Arg(rec.Arg(1))
	if err != nil {
		return err
	}
	s := syscallrec.Read{HandleID: rec.HandleID, Offset: offset, Size: size}
	s.SetTiming(rec.TimestampNs, rec.DurationNs)
	p.emit(s)
	return nil
}

func (p *Parser) handleWrite(rec tracefmt.Record) error {
	offset, err := parseInt64Arg(rec.Arg(0))
	if err != nil {
		return err
	}
	size, err := parseInt64Arg(rec.Arg(1))
	if err != nil {
		return err
	}
	s := syscallrec.Write{HandleID: rec.HandleID, Offset: offset, Size: size}
	s.SetTiming(rec.TimestampNs, rec.DurationNs)
	p.emit(s)
	return nil
}

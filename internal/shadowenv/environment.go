package shadowenv

import "fmt"

// UnresolvedUUIDError is returned when a trace record references a UUID that
// has never been seen by a lookup/mount/create/mkdir/mknod/rename event
// (spec.md §3 invariant 1).
type UnresolvedUUIDError struct {
	UUID string
	Line int
}

func (e *UnresolvedUUIDError) Error() string {
	return fmt.Sprintf("line %d: unresolved uuid %q", e.Line, e.UUID)
}

// layer is an insertion-order-preserving UUID→File map. Order matters only
// for the initial layer (spec.md §9), but all three layers use the same
// shape for symmetry. byPath mirrors files keyed by path instead of UUID,
// needed by handlers (like `unlink`) that only learn a target's path, not
// its UUID, from the trace record.
type layer struct {
	order  []string
	files  map[string]*File
	byPath map[string]*File
}

func newLayer() *layer {
	return &layer{files: make(map[string]*File), byPath: make(map[string]*File)}
}

func (l *layer) get(uuid string) (*File, bool) {
	f, ok := l.files[uuid]
	return f, ok
}

func (l *layer) getByPath(path string) (*File, bool) {
	f, ok := l.byPath[path]
	return f, ok
}

func (l *layer) set(uuid string, f *File) {
	if _, exists := l.files[uuid]; !exists {
		l.order = append(l.order, uuid)
	}
	l.files[uuid] = f
	l.byPath[f.Path] = f
}

func (l *layer) ordered() []*File {
	out := make([]*File, 0, len(l.order))
	for _, uuid := range l.order {
		out = append(out, l.files[uuid])
	}
	return out
}

// Environment is the three-layer shadow filesystem of spec.md §3: runtime
// entries (created during the trace) shadow initial entries (discovered by
// lookup before any mutation), which shadow the single root (mount) entry.
type Environment struct {
	root      *layer
	initial   *layer
	runtime   *layer
	mountUUID string
}

// New returns an empty Environment.
func New() *Environment {
	return &Environment{root: newLayer(), initial: newLayer(), runtime: newLayer()}
}

// SeedMount seeds the root layer with the mount record's UUID (spec.md §3
// invariant 2): path "", kind directory, size (0,0).
func (e *Environment) SeedMount(uuid string) {
	e.mountUUID = uuid
	e.root.set(uuid, NewDir("", 0, 0))
}

// IsMount reports whether uuid is the mount-point UUID.
func (e *Environment) IsMount(uuid string) bool {
	return uuid == e.mountUUID
}

// Resolve looks up uuid across runtime, then initial, then root, matching
// the search order spec.md §3 documents.
func (e *Environment) Resolve(uuid string) (*File, bool) {
	if f, ok := e.runtime.get(uuid); ok {
		return f, true
	}
	if f, ok := e.initial.get(uuid); ok {
		return f, true
	}
	if f, ok := e.root.get(uuid); ok {
		return f, true
	}
	return nil, false
}

// MustResolve is Resolve but returns an *UnresolvedUUIDError (spec.md §3
// invariant 1) instead of a bool, for handlers that cannot proceed without
// the referenced entry.
func (e *Environment) MustResolve(uuid string, line int) (*File, error) {
	f, ok := e.Resolve(uuid)
	if !ok {
		return nil, &UnresolvedUUIDError{UUID: uuid, Line: line}
	}
	return f, nil
}

// ResolveByPath looks up a File by its path instead of its UUID, searching
// runtime, then initial, then root, same precedence as Resolve. Used by
// handlers that only learn a target's path from the trace record (e.g.
// `unlink`, which must know the target's Kind to decide between emitting
// `rmdir` or `unlink`).
func (e *Environment) ResolveByPath(path string) (*File, bool) {
	if f, ok := e.runtime.getByPath(path); ok {
		return f, true
	}
	if f, ok := e.initial.getByPath(path); ok {
		return f, true
	}
	if f, ok := e.root.getByPath(path); ok {
		return f, true
	}
	return nil, false
}

// Exists reports whether uuid is already known, across all three layers.
func (e *Environment) Exists(uuid string) bool {
	_, ok := e.Resolve(uuid)
	return ok
}

// InsertDiscovered records a UUID discovered by a `lookup` event: into the
// root layer if its parent is the mount, otherwise into the initial layer
// (spec.md §4.2 `lookup` row).
func (e *Environment) InsertDiscovered(uuid string, f *File, parentIsMount bool) {
	if parentIsMount {
		e.root.set(uuid, f)
	} else {
		e.initial.set(uuid, f)
	}
}

// InsertRuntime records a UUID created during the trace itself (create,
// mkdir, mknod, rename destination).
func (e *Environment) InsertRuntime(uuid string, f *File) {
	e.runtime.set(uuid, f)
}

// InitialFiles returns the initial layer's entries in discovery order, for
// environment preparation (spec.md §4.4).
func (e *Environment) InitialFiles() []*File {
	return e.initial.ordered()
}

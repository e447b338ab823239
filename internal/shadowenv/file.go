// Package shadowenv implements spec.md §3's Shadow Environment: the layered
// UUID→File mapping, handle table, open-handle set, and pending-lookup
// queue that the trace parser mutates as it reconstructs syscalls.
package shadowenv

// Kind distinguishes a File's filesystem entity type.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindDir is a directory.
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "directory"
	}
	return "file"
}

// DirSize is the mutable (known, unknown) child-count pair carried by
// directory Files (spec.md §3 "File"). known_children counts
// creations/renames observed in the trace; unknown_children is the largest
// number of pre-existing entries a paginated readdir implies must exist.
type DirSize struct {
	Known   int
	Unknown int
}

// File is the (path, kind, size) tuple spec.md §3 describes. For a
// directory, Size carries the DirSize pair; FileBytes is meaningless. For a
// plain file, FileBytes is the byte length; Size is the zero value.
type File struct {
	Path      string
	Kind      Kind
	FileBytes int64
	Size      DirSize
}

// NewFile constructs a KindFile File of the given size.
func NewFile(path string, bytes int64) *File {
	return &File{Path: path, Kind: KindFile, FileBytes: bytes}
}

// NewDir constructs a KindDir File with the given child counts.
func NewDir(path string, known, unknown int) *File {
	return &File{Path: path, Kind: KindDir, Size: DirSize{Known: known, Unknown: unknown}}
}

// IncrementKnown bumps known_children by one, per spec.md invariant 3
// (known_children >= 0 always — increment can never violate that).
func (f *File) IncrementKnown() {
	f.Size.Known++
}

// DecrementKnown decreases known_children by one, clamped at zero so the
// invariant `known_children >= 0` (spec.md §3 invariant 3) always holds even
// against a noisy trace.
func (f *File) DecrementKnown() {
	if f.Size.Known > 0 {
		f.Size.Known--
	}
}

// DecrementUnknownClamped decreases unknown_children by one, clamped at
// zero (spec.md §4.2 lookup row: "clamped >= 0 for the known side" — the
// same clamp applies symmetrically here to keep the pair non-negative).
func (f *File) DecrementUnknownClamped() {
	if f.Size.Unknown > 0 {
		f.Size.Unknown--
	}
}

// RaiseUnknown sets unknown_children to the larger of its current value and
// candidate (spec.md §4.2 readdir row).
func (f *File) RaiseUnknown(candidate int) {
	if candidate > f.Size.Unknown {
		f.Size.Unknown = candidate
	}
}

// Package syscallrec implements spec.md §3's Syscall Record: a tagged union
// of reconstructed user syscalls, one struct per variant, each able to
// Perform itself against a real mounted filesystem (spec.md §9
// "Tagged-union syscall records").
package syscallrec

import (
	"os"
	"path/filepath"

	"github.com/onedata/ioreplay/internal/pathmask"
)

// Context is everything Perform needs beyond the syscall's own fields: the
// mount path and mask table for path resolution (spec.md §4.5 step 1), the
// handle table translating trace handle_ids to real file descriptors, and
// the scandir cursor cache for paginated readdir replay.
type Context struct {
	MountPath string
	Mask      *pathmask.Table
	Handles   *HandleTable
	Scandir   *ScandirCursorCache
}

// NewContext builds a replay Context rooted at mountPath.
func NewContext(mountPath string, mask *pathmask.Table) *Context {
	if mask == nil {
		mask = pathmask.NewTable()
	}
	return &Context{
		MountPath: mountPath,
		Mask:      mask,
		Handles:   NewHandleTable(),
		Scandir:   NewScandirCursorCache(),
	}
}

// Resolve joins relPath (stored without a leading slash against the mount
// root, spec.md §4.5 step 1) onto the mount path and applies the path-mask
// substitution table.
func (c *Context) Resolve(relPath string) string {
	abs := filepath.Join(c.MountPath, relPath)
	if replacement, ok := c.Mask.Lookup(abs); ok {
		return replacement
	}
	return abs
}

// HandleTable maps trace handle_ids to the real *os.File opened during
// replay (spec.md §3 "Handle table"), populated by Open/Create and drained
// by Close.
type HandleTable struct {
	files map[int64]*os.File
}

// NewHandleTable returns an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{files: make(map[int64]*os.File)}
}

// Put records the real file backing handleID.
func (h *HandleTable) Put(handleID int64, f *os.File) {
	h.files[handleID] = f
}

// Get returns the real file backing handleID, if any.
func (h *HandleTable) Get(handleID int64) (*os.File, bool) {
	f, ok := h.files[handleID]
	return f, ok
}

// Remove deletes and returns the real file backing handleID.
func (h *HandleTable) Remove(handleID int64) (*os.File, bool) {
	f, ok := h.files[handleID]
	delete(h.files, handleID)
	return f, ok
}

package syscallrec

import "os"

// cursorKey identifies one parked directory iterator by the directory's
// resolved path and the trace offset it will resume from (spec.md §4.5
// "Readdir replay").
type cursorKey struct {
	path   string
	offset int64
}

// ScandirCursorCache parks open directory handles between paginated
// readdir calls on the same path. Multiple concurrent readdir sequences on
// one directory are possible in a trace (e.g. two processes listing the
// same directory), so each (path, offset) bucket is a stack rather than a
// single slot.
type ScandirCursorCache struct {
	parked map[cursorKey][]*os.File
}

// NewScandirCursorCache returns an empty cache.
func NewScandirCursorCache() *ScandirCursorCache {
	return &ScandirCursorCache{parked: make(map[cursorKey][]*os.File)}
}

// Park stashes dir to be resumed by the next readdir call at (path, offset).
func (c *ScandirCursorCache) Park(path string, offset int64, dir *os.File) {
	key := cursorKey{path, offset}
	c.parked[key] = append(c.parked[key], dir)
}

// Pop removes and returns the most recently parked iterator for (path,
// offset), if any.
func (c *ScandirCursorCache) Pop(path string, offset int64) (*os.File, bool) {
	key := cursorKey{path, offset}
	stack := c.parked[key]
	if len(stack) == 0 {
		return nil, false
	}
	dir := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(c.parked, key)
	} else {
		c.parked[key] = stack
	}
	return dir, true
}

// Len reports how many iterators remain parked, for tests asserting that
// replay doesn't leak open directory descriptors.
func (c *ScandirCursorCache) Len() int {
	n := 0
	for _, stack := range c.parked {
		n += len(stack)
	}
	return n
}

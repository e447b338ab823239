package shadowenv

// OpenHandles tracks which handle_ids are currently considered open during
// parsing (spec.md §3 "Open-handle set"), used by the `fsync`-after-close
// coalescence rule (spec.md §4.2 rule F). This is distinct from the real
// OS-descriptor handle table the replay engine keeps — during parsing no
// real file descriptors exist yet.
type OpenHandles struct {
	open map[int64]struct{}
}

// NewOpenHandles returns an empty set.
func NewOpenHandles() *OpenHandles {
	return &OpenHandles{open: make(map[int64]struct{})}
}

// Add marks handleID open (on `open`/`create`).
func (h *OpenHandles) Add(handleID int64) {
	h.open[handleID] = struct{}{}
}

// Remove marks handleID closed (on `release`).
func (h *OpenHandles) Remove(handleID int64) {
	delete(h.open, handleID)
}

// Contains reports whether handleID is currently open.
func (h *OpenHandles) Contains(handleID int64) bool {
	_, ok := h.open[handleID]
	return ok
}

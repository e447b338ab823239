package shadowenv

// lookupEvent is a recorded-but-not-yet-attributed lookup: its fused-timing
// inputs (spec.md §3 "Pending-lookup table").
type lookupEvent struct {
	TimestampNs int64
	DurationNs  int64
}

// PendingLookups is the per-path queue of unattached lookups awaiting
// coalescence with a follow-up event (spec.md §4.2 "Lookup coalescence
// rule"). Per spec.md §9, insertion is at the front (newest first) and the
// match scan runs front-to-back, so a more recent lookup on the same path
// is preferred over an older one when both would fit.
type PendingLookups struct {
	byPath map[string][]lookupEvent
}

// NewPendingLookups returns an empty table.
func NewPendingLookups() *PendingLookups {
	return &PendingLookups{byPath: make(map[string][]lookupEvent)}
}

// Push enqueues a new pending lookup on path at the front of its queue.
func (p *PendingLookups) Push(path string, timestampNs, durationNs int64) {
	entries := p.byPath[path]
	next := make([]lookupEvent, 0, len(entries)+1)
	next = append(next, lookupEvent{TimestampNs: timestampNs, DurationNs: durationNs})
	next = append(next, entries...)
	p.byPath[path] = next
}

// Take searches path's queue, front-to-back, for the first entry (t_l, d_l)
// with 0 <= eventTs-(t_l+d_l) <= windowNs. If found, it is removed and the
// fused (timestamp, duration) pair is returned with coalesced=true. If not,
// (eventTs, eventDur, false) is returned unchanged and the queue is left
// untouched (spec.md §4.2).
func (p *PendingLookups) Take(path string, eventTs, eventDur, windowNs int64) (timestampNs, durationNs int64, coalesced bool) {
	entries := p.byPath[path]
	for i, e := range entries {
		gap := eventTs - (e.TimestampNs + e.DurationNs)
		if gap >= 0 && gap <= windowNs {
			remaining := make([]lookupEvent, 0, len(entries)-1)
			remaining = append(remaining, entries[:i]...)
			remaining = append(remaining, entries[i+1:]...)
			if len(remaining) == 0 {
				delete(p.byPath, path)
			} else {
				p.byPath[path] = remaining
			}
			return e.TimestampNs, eventTs + eventDur - e.TimestampNs, true
		}
	}
	return eventTs, eventDur, false
}

// Pending returns the number of still-unattached lookups across all paths,
// useful for tests asserting drain behaviour (spec.md §8 invariant 3).
func (p *PendingLookups) Pending() int {
	n := 0
	for _, entries := range p.byPath {
		n += len(entries)
	}
	return n
}

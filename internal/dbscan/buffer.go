package dbscan

// HitBuffer is the sliding window of currently-live hits, sorted by time
// (stable for equal times by arrival order). Appends are O(1) because new
// arrivals carry the largest time seen so far; the engine rejects anything
// older before it reaches the buffer.
type HitBuffer struct {
	hits []*Hit
}

// Len returns the number of live hits.
func (b *HitBuffer) Len() int { return len(b.hits) }

// Hits exposes the underlying time-sorted slice. Callers must not mutate it.
func (b *HitBuffer) Hits() []*Hit { return b.hits }

// Append adds h at the end of the buffer. The caller guarantees
// h.Time >= the time of the current last element.
func (b *HitBuffer) Append(h *Hit) {
	b.hits = append(b.hits, h)
}

// LowerBound returns the index of the first hit with time >= t.
func (b *HitBuffer) LowerBound(t float64) int {
	lo, hi := 0, len(b.hits)
	for lo < hi {
		mid := (lo + hi) / 2
		if b.hits[mid].Time < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// DropBefore removes every hit with time < cutoff and returns the evicted
// hits. The retained suffix is shifted to the front of the backing array so
// the buffer does not pin evicted hits.
func (b *HitBuffer) DropBefore(cutoff float64) []*Hit {
	n := b.LowerBound(cutoff)
	if n == 0 {
		return nil
	}
	evicted := make([]*Hit, n)
	copy(evicted, b.hits[:n])
	m := copy(b.hits, b.hits[n:])
	for i := m; i < len(b.hits); i++ {
		b.hits[i] = nil
	}
	b.hits = b.hits[:m]
	return evicted
}

// Remove deletes h from the buffer if present, reporting whether it was
// found. Used when recycling a drained cluster whose hits have not been
// trimmed yet.
func (b *HitBuffer) Remove(h *Hit) bool {
	i := b.LowerBound(h.Time)
	for i < len(b.hits) && b.hits[i].Time == h.Time {
		if b.hits[i] == h {
			b.hits = append(b.hits[:i], b.hits[i+1:]...)
			return true
		}
		i++
	}
	return false
}

// neighboursSorted finds the eps-neighbours of q among hits, which must be
// sorted by time. It scans backwards from the newest hit, because q is
// ~always the newest arrival, and stops at the first hit more than eps
// older than q. Neighbour links (and core upgrades) are installed on both
// sides as they are found. Returns the number of neighbouring pairs seen
// during this scan.
func neighboursSorted(hits []*Hit, q *Hit, eps float64, minPts int) int {
	n := 0
	for i := len(hits) - 1; i >= 0; i-- {
		h := hits[i]
		if h.Time > q.Time+eps {
			// Only reachable when q is not the newest hit in hits;
			// keep scanning toward the window.
			continue
		}
		if h.Time < q.Time-eps {
			break
		}
		if q.TryAddNeighbour(h, eps, minPts) {
			n++
		}
	}
	return n
}

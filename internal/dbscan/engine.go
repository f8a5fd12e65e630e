// Package dbscan implements streaming density-based clustering of
// time-ordered (time, channel) hit events. Hits arrive in monotonically
// non-decreasing time order; the engine continuously forms, extends, merges
// and finalizes clusters so that, once the stream is flushed, the emitted
// partition matches what a batch DBSCAN over the full stream would produce,
// while only a bounded window of recent hits is kept in memory.
package dbscan

import (
	"errors"
	"sort"
)

var (
	// ErrOutOfOrder is returned by ingest when a hit is strictly older than
	// the latest ingested time. The engine state is unchanged.
	ErrOutOfOrder = errors.New("dbscan: hit out of time order")

	// ErrArenaExhausted is returned by ingest when a fixed-capacity arena
	// has no free slot. The engine state is unchanged.
	ErrArenaExhausted = errors.New("dbscan: hit arena exhausted")
)

// DefaultTrimLookback is the multiple of eps behind the earliest hit still
// needed by any active cluster that Trim keeps in the buffer.
const DefaultTrimLookback = 10

// Point is a raw (time, channel) observation before it becomes a hit.
type Point struct {
	Time float64
	Chan int
}

// Engine is the incremental DBSCAN state machine. It is not safe for
// concurrent use; producers must serialize calls.
type Engine struct {
	eps          float64
	minPts       int
	trimLookback float64

	arena  *HitArena
	buffer HitBuffer

	// clusters holds the active (incomplete) clusters in ascending index
	// order. Complete entries linger until the next ingest sweeps them out,
	// mirroring the walk-and-erase pattern of the ingest loop.
	clusters []*Cluster

	latestTime float64
	ingested   int
	nextIndex  int

	pending []*Cluster // finalized clusters awaiting Drain
	sink    func(*Cluster)
}

// NewEngine returns an engine with an unbounded hit arena.
func NewEngine(eps float64, minPts int) *Engine {
	return NewEngineWithCapacity(eps, minPts, 0)
}

// NewEngineWithCapacity returns an engine whose arena is limited to
// capacity hits; capacity <= 0 means unbounded.
func NewEngineWithCapacity(eps float64, minPts, capacity int) *Engine {
	return &Engine{
		eps:          eps,
		minPts:       minPts,
		trimLookback: DefaultTrimLookback,
		arena:        NewHitArena(capacity),
	}
}

// SetConsumer switches the engine to push mode: each finalized cluster is
// handed to fn exactly once, in finalization order, instead of being queued
// for Drain. Must be set before the first ingest.
func (e *Engine) SetConsumer(fn func(*Cluster)) { e.sink = fn }

// SetTrimLookback overrides the Trim retention window multiplier.
func (e *Engine) SetTrimLookback(k float64) {
	if k > 0 {
		e.trimLookback = k
	}
}

// Eps returns the neighbourhood radius.
func (e *Engine) Eps() float64 { return e.eps }

// MinPts returns the core-point threshold (count includes the hit itself).
func (e *Engine) MinPts() int { return e.minPts }

// LatestTime returns the time of the most recent ingested hit.
func (e *Engine) LatestTime() float64 { return e.latestTime }

// Ingested returns the number of hits accepted so far.
func (e *Engine) Ingested() int { return e.ingested }

// BufferLen returns the number of live hits in the sliding window.
func (e *Engine) BufferLen() int { return e.buffer.Len() }

// ActiveClusters returns the number of clusters still open.
func (e *Engine) ActiveClusters() int {
	n := 0
	for _, c := range e.clusters {
		if c.Completeness == Incomplete {
			n++
		}
	}
	return n
}

// IngestPoint constructs a hit in the arena and ingests it. Fails with
// ErrOutOfOrder if time is before the latest ingested time, or with
// ErrArenaExhausted if the arena is full; the engine is unchanged on error.
func (e *Engine) IngestPoint(time float64, channel int) error {
	if e.ingested > 0 && time < e.latestTime {
		return ErrOutOfOrder
	}
	h, err := e.arena.Take(time, channel)
	if err == ErrArenaExhausted {
		// Trimming may return stale unclustered hits to the arena.
		e.Trim()
		h, err = e.arena.Take(time, channel)
	}
	if err != nil {
		return err
	}
	e.ingest(h)
	return nil
}

// IngestHit ingests a caller-constructed hit. The hit must be fresh (as
// returned by NewHit) and its time must not precede the latest ingested
// time.
func (e *Engine) IngestHit(h *Hit) error {
	if e.ingested > 0 && h.Time < e.latestTime {
		return ErrOutOfOrder
	}
	e.ingest(h)
	return nil
}

// ingest runs the per-arrival state machine: append and discover
// neighbours, offer the hit to every active cluster, expand reachability,
// merge clusters bridged by the new hit, spawn a new cluster if the hit is
// core and unclaimed, and finalize clusters the stream has moved past.
func (e *Engine) ingest(newHit *Hit) {
	newHit.Seq = e.ingested
	e.ingested++
	e.buffer.Append(newHit)
	e.latestTime = newHit.Time

	neighboursSorted(e.buffer.Hits(), newHit, e.eps, e.minPts)

	// Clusters the new hit attached to. Two or more means the hit bridges
	// previously separate components and they must merge.
	var touched []*Cluster
	var completed []*Cluster

	active := e.clusters[:0]
	for _, c := range e.clusters {
		if c.Completeness == Complete {
			// Merged-away or already-finalized straggler.
			continue
		}

		if c.MaybeAttach(newHit, e.eps, e.minPts) {
			touched = append(touched, c)
		}

		// Sweep in anything the new hit may have bridged into reach of the
		// cluster's newest core point, including former noise.
		if c.LatestCore != nil {
			e.expandReachable(c.LatestCore, c)
		}

		if c.LatestTime < e.latestTime-e.eps {
			c.Completeness = Complete
			completed = append(completed, c)
			continue
		}
		active = append(active, c)
	}
	e.clusters = active

	// The reachability sweep can place the new hit in a cluster whose
	// MaybeAttach had already run; that home cluster bridges with the
	// touched ones just the same, so fold it in before merging.
	if home := newHit.Cluster; home != ClusterUndefined {
		found := false
		for _, c := range touched {
			if c.Index == home {
				found = true
				break
			}
		}
		if !found {
			if hc := e.findActive(home); hc != nil {
				touched = append(touched, hc)
			}
		}
	}
	if len(touched) >= 2 {
		sort.Slice(touched, func(i, j int) bool { return touched[i].Index < touched[j].Index })
		into := touched[0]
		for _, victim := range touched[1:] {
			into.Steal(victim)
		}
	}

	if newHit.Cluster == ClusterUndefined && newHit.Neighbours.Len()+1 >= e.minPts {
		newHit.Connectedness = ConnCore
		e.spawn(newHit)
	}

	// A neighbour may have crossed the core threshold on this arrival (its
	// neighbourhood straddles the new hit and older hits that were never
	// dense enough on their own). An unclustered one seeds a cluster of its
	// own, exactly as the batch algorithm would when it reached that point;
	// a clustered one can newly reach hits its cluster has not swept, so
	// expansion reruns seeded at it. Only the new hit's neighbours can have
	// changed degree, so the scan is local.
	for _, n := range newHit.Neighbours.Hits() {
		if n.Connectedness != ConnCore {
			continue
		}
		if n.Cluster == ClusterUndefined {
			e.spawn(n)
			continue
		}
		if c := e.findActive(n.Cluster); c != nil {
			e.expandReachable(n, c)
		}
	}

	if newHit.Cluster == ClusterUndefined {
		newHit.Connectedness = ConnNoise
	}

	for _, c := range completed {
		e.emit(c)
	}
}

// findActive returns the active cluster with the given index, or nil.
func (e *Engine) findActive(index int) *Cluster {
	for _, c := range e.clusters {
		if c.Index == index && c.Completeness == Incomplete {
			return c
		}
	}
	return nil
}

// spawn creates a fresh cluster seeded at core hit seed: the seed, its
// unclaimed neighbourhood, and everything density-reachable from it. Hits
// already placed in another cluster stay where they are.
func (e *Engine) spawn(seed *Hit) {
	c := &Cluster{Index: e.nextIndex}
	e.nextIndex++
	c.AddHit(seed)
	for _, n := range seed.Neighbours.Hits() {
		if n.Cluster == ClusterUndefined {
			c.AddHit(n)
		}
	}
	e.expandReachable(seed, c)
	e.clusters = append(e.clusters, c)
}

// expandReachable grows cluster c with every hit density-reachable from
// seed. The frontier starts as seed's neighbours and is worked
// depth-first. Former noise joins as an edge (border) point and does not
// seed further expansion; undefined hits join and, when core, push their
// own neighbours onto the frontier. Hits already placed elsewhere are left
// alone — merging is the bridge hit's job.
func (e *Engine) expandReachable(seed *Hit, c *Cluster) {
	frontier := append([]*Hit(nil), seed.Neighbours.Hits()...)
	for len(frontier) > 0 {
		q := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		if q.Connectedness == ConnNoise {
			c.AddHit(q) // reclassified to a border point; no descent
			continue
		}
		if q.Cluster != ClusterUndefined {
			continue
		}

		c.AddHit(q)
		if q.Neighbours.Len()+1 >= e.minPts {
			q.Connectedness = ConnCore
			frontier = append(frontier, q.Neighbours.Hits()...)
		}
	}
}

// emit hands a finalized cluster to the consumer or the drain queue.
// Clusters emptied by a merge are dropped: their hits already left with the
// surviving cluster.
func (e *Engine) emit(c *Cluster) {
	if c.Hits.Len() == 0 {
		return
	}
	for _, h := range c.Hits.Hits() {
		h.Completeness = Complete
	}
	if e.sink != nil {
		e.sink(c)
		return
	}
	e.pending = append(e.pending, c)
}

// Drain returns the finalized clusters buffered since the last call, in
// finalization order. In push mode it always returns nil.
func (e *Engine) Drain() []*Cluster {
	out := e.pending
	e.pending = nil
	return out
}

// Flush finalizes every remaining active cluster, exactly as if a hit far
// beyond all finite data had been ingested, and emits them in index order.
// Pending hits that never joined a cluster stay noise.
func (e *Engine) Flush() {
	for _, c := range e.clusters {
		if c.Completeness == Complete {
			continue
		}
		c.Completeness = Complete
		e.emit(c)
	}
	e.clusters = e.clusters[:0]
}

// Trim evicts hits too old to influence any active cluster. The cutoff
// trails the earliest hit still held by an active cluster (or the stream
// time when no cluster is open) by trimLookback*eps. Evicted hits are
// unlinked from every live neighbour set first; hits that never joined a
// cluster go straight back to the arena. Idempotent.
func (e *Engine) Trim() {
	earliest := e.latestTime
	for _, c := range e.clusters {
		if c.Completeness == Complete || c.Hits.Len() == 0 {
			continue
		}
		if t := c.Hits.Hits()[0].Time; t < earliest {
			earliest = t
		}
	}
	cutoff := earliest - e.trimLookback*e.eps

	for _, h := range e.buffer.DropBefore(cutoff) {
		for _, n := range h.Neighbours.Hits() {
			n.Neighbours.Remove(h)
		}
		h.Completeness = Complete
		if h.Cluster == ClusterUndefined || h.Cluster == ClusterNoise {
			e.arena.Release(h)
		}
	}
}

// Recycle returns the hits of a drained cluster to the arena. Only call it
// once the cluster's contents are no longer needed; the hits may be handed
// out again by the next ingest. Required to make a fixed-capacity arena
// circulate; optional in heap mode.
func (e *Engine) Recycle(c *Cluster) {
	for _, h := range c.Hits.Hits() {
		for _, n := range h.Neighbours.Hits() {
			n.Neighbours.Remove(h)
		}
		e.buffer.Remove(h)
		e.arena.Release(h)
	}
	c.Hits.Clear()
	c.LatestCore = nil
}

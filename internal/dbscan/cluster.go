package dbscan

// Cluster is a density-connected component under formation or finalized.
// A cluster exclusively owns its membership list; each member carries the
// cluster index as a back-reference.
type Cluster struct {
	// Index is globally unique within an engine and strictly increasing in
	// creation order.
	Index int

	// Completeness becomes Complete once no future hit can join: either the
	// latest member time fell more than eps behind the stream, or the
	// cluster was merged away.
	Completeness Completeness

	// LatestTime is the maximum time over member hits.
	LatestTime float64

	// LatestCore is the core member with the greatest time, or nil if the
	// cluster has no core member yet.
	LatestCore *Hit

	// Hits holds the members, time-sorted and unique.
	Hits HitSet
}

// Size returns the number of member hits.
func (c *Cluster) Size() int { return c.Hits.Len() }

// TimeSpan returns the first and last member times. Both are zero for an
// empty cluster.
func (c *Cluster) TimeSpan() (first, last float64) {
	hits := c.Hits.Hits()
	if len(hits) == 0 {
		return 0, 0
	}
	return hits[0].Time, hits[len(hits)-1].Time
}

// AddHit inserts h into the membership (deduplicating), points h back at
// this cluster, and refreshes the latest-time and latest-core bookkeeping.
// A noise hit joining a cluster becomes an edge (border) point; leaving it
// marked noise would let a later reachability sweep for a different cluster
// claim it a second time.
func (c *Cluster) AddHit(h *Hit) {
	c.Hits.Insert(h)
	h.Cluster = c.Index
	if h.Connectedness == ConnNoise {
		h.Connectedness = ConnEdge
	}
	if h.Time > c.LatestTime {
		c.LatestTime = h.Time
	}
	if h.Connectedness == ConnCore && (c.LatestCore == nil || h.Time > c.LatestCore.Time) {
		c.LatestCore = h
	}
}

// MaybeAttach reports whether newHit neighbours any existing member, and
// claims it for this cluster when no other cluster has claimed it yet (the
// engine merges the clusters a hit bridges, so membership stays
// single-assignment). Precondition: newHit.Time >= the time of every
// member. Only members within eps of newHit's time can qualify, so the
// scan starts at the lower bound of newHit.Time - eps. Each member that
// gains newHit as a neighbour is reclassified: core if it now has minPts
// hits in reach, otherwise edge.
func (c *Cluster) MaybeAttach(newHit *Hit, eps float64, minPts int) bool {
	neighboured := false

	members := c.Hits.Hits()
	for i := c.Hits.lowerBound(newHit.Time - eps); i < len(members); i++ {
		h := members[i]
		if !h.TryAddNeighbour(newHit, eps, minPts) {
			continue
		}
		neighboured = true
		if h.Neighbours.Len()+1 >= minPts {
			h.Connectedness = ConnCore
		} else {
			h.Connectedness = ConnEdge
		}
	}

	if neighboured && newHit.Cluster == ClusterUndefined {
		c.AddHit(newHit)
	}
	return neighboured
}

// Steal merges every hit of other into this cluster and marks other
// Complete with an empty membership, flagging it for removal from the
// active set.
func (c *Cluster) Steal(other *Cluster) {
	for _, h := range other.Hits.Hits() {
		c.AddHit(h)
	}
	other.Hits.Clear()
	other.LatestCore = nil
	other.Completeness = Complete
}

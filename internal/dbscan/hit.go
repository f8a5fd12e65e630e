package dbscan

import "math"

// Cluster labels for hits that are not (yet) members of a cluster.
const (
	// ClusterUndefined marks a hit that belongs to no cluster. The engine
	// keeps this label on noise hits too; their Connectedness (ConnNoise)
	// tells them apart.
	ClusterUndefined = -1
	// ClusterNoise is the label for a hit rejected as noise. The engine never
	// assigns it; Trim treats it like ClusterUndefined.
	ClusterNoise = -2
)

// Connectedness classifies a hit in the DBSCAN scheme.
type Connectedness int

const (
	// ConnUndefined is the initial state of every hit.
	ConnUndefined Connectedness = iota
	// ConnNoise means fewer than minPts hits (including itself) within eps
	// and not in a cluster.
	ConnNoise
	// ConnCore means minPts or more hits (including itself) within eps.
	// Core is sticky: once a hit is core it stays core while live.
	ConnCore
	// ConnEdge means fewer than minPts hits (including itself) within eps but
	// part of a cluster.
	ConnEdge
)

func (c Connectedness) String() string {
	switch c {
	case ConnUndefined:
		return "undefined"
	case ConnNoise:
		return "noise"
	case ConnCore:
		return "core"
	case ConnEdge:
		return "edge"
	}
	return "invalid"
}

// Completeness records whether a hit or cluster can still be modified by
// future arrivals. New hits push the stream time forward, and once a hit
// (or a whole cluster) is more than eps behind the latest time, no future
// hit can be its neighbour and its fate is sealed.
type Completeness int

const (
	Incomplete Completeness = iota
	Complete
)

// Hit is a single (time, channel) observation plus its mutable clustering
// state. Hits are owned by the engine's arena; clusters and neighbour sets
// hold references, not copies.
type Hit struct {
	Time float64
	Chan int

	// Seq is the arrival sequence number assigned at ingest. It gives each
	// hit a stable identity independent of (Time, Chan), which may repeat.
	Seq int

	// Cluster is the index of the owning cluster, or ClusterUndefined /
	// ClusterNoise.
	Cluster       int
	Connectedness Connectedness
	Completeness  Completeness

	// Neighbours holds every live hit strictly within eps, excluding the
	// hit itself. The relation is symmetric.
	Neighbours HitSet
}

// NewHit returns a hit in its initial state.
func NewHit(time float64, channel int) *Hit {
	h := &Hit{}
	h.reset(time, channel)
	return h
}

// reset reinitialises a hit for reuse from the arena free list.
func (h *Hit) reset(time float64, channel int) {
	h.Time = time
	h.Chan = channel
	h.Seq = 0
	h.Cluster = ClusterUndefined
	h.Connectedness = ConnUndefined
	h.Completeness = Incomplete
	h.Neighbours.Clear()
}

// Dist returns the Euclidean distance between two hits, treating time and
// channel as orthogonal axes.
func Dist(p, q *Hit) float64 {
	dt := p.Time - q.Time
	dc := float64(p.Chan - q.Chan)
	return math.Sqrt(dt*dt + dc*dc)
}

// dist2 is the squared distance; comparing dist2 < eps² avoids the sqrt and
// preserves the strict inequality.
func dist2(p, q *Hit) float64 {
	dt := p.Time - q.Time
	dc := float64(p.Chan - q.Chan)
	return dt*dt + dc*dc
}

// TryAddNeighbour links h and other symmetrically when they are distinct
// hits strictly closer than eps. Whenever a side's neighbour count reaches
// minPts-1 (so minPts including itself) it is upgraded to core; the upgrade
// never reverses. Reports whether the pair is neighbouring.
func (h *Hit) TryAddNeighbour(other *Hit, eps float64, minPts int) bool {
	if other == h || dist2(h, other) >= eps*eps {
		return false
	}
	h.Neighbours.Insert(other)
	other.Neighbours.Insert(h)
	if h.Neighbours.Len()+1 >= minPts {
		h.Connectedness = ConnCore
	}
	if other.Neighbours.Len()+1 >= minPts {
		other.Connectedness = ConnCore
	}
	return true
}

// HitSet is a set of unique hits kept sorted by time (stable by insertion
// order for equal times). A slice outperforms a map for the small sets that
// occur in practice and gives ordered iteration for free.
type HitSet struct {
	hits []*Hit
}

// Len returns the number of hits in the set.
func (s *HitSet) Len() int { return len(s.hits) }

// Hits exposes the underlying time-sorted slice for iteration. Callers must
// not mutate it.
func (s *HitSet) Hits() []*Hit { return s.hits }

// Clear empties the set.
func (s *HitSet) Clear() { s.hits = s.hits[:0] }

// lowerBound returns the index of the first hit with time >= t.
func (s *HitSet) lowerBound(t float64) int {
	lo, hi := 0, len(s.hits)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.hits[mid].Time < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Insert adds h to the set, keeping it sorted by time. Inserting a hit that
// is already present is a no-op.
func (s *HitSet) Insert(h *Hit) {
	i := s.lowerBound(h.Time)
	// Scan the run of equal times for a duplicate; append after it so
	// insertion order is preserved for ties.
	for i < len(s.hits) && s.hits[i].Time == h.Time {
		if s.hits[i] == h {
			return
		}
		i++
	}
	s.hits = append(s.hits, nil)
	copy(s.hits[i+1:], s.hits[i:])
	s.hits[i] = h
}

// Remove deletes h from the set if present, reporting whether it was found.
func (s *HitSet) Remove(h *Hit) bool {
	i := s.lowerBound(h.Time)
	for i < len(s.hits) && s.hits[i].Time == h.Time {
		if s.hits[i] == h {
			s.hits = append(s.hits[:i], s.hits[i+1:]...)
			return true
		}
		i++
	}
	return false
}

// Contains reports whether h is in the set.
func (s *HitSet) Contains(h *Hit) bool {
	i := s.lowerBound(h.Time)
	for i < len(s.hits) && s.hits[i].Time == h.Time {
		if s.hits[i] == h {
			return true
		}
		i++
	}
	return false
}

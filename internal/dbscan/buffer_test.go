package dbscan

import "testing"

func bufferOf(times ...float64) (*HitBuffer, []*Hit) {
	b := &HitBuffer{}
	hits := make([]*Hit, len(times))
	for i, tm := range times {
		hits[i] = NewHit(tm, i)
		b.Append(hits[i])
	}
	return b, hits
}

func TestHitBuffer_LowerBound(t *testing.T) {
	b, _ := bufferOf(0, 1, 2, 2, 3, 5)

	cases := []struct {
		t    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{2, 2},
		{2.5, 4},
		{5, 5},
		{6, 6},
	}
	for _, c := range cases {
		if got := b.LowerBound(c.t); got != c.want {
			t.Errorf("LowerBound(%v) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestHitBuffer_DropBefore(t *testing.T) {
	b, hits := bufferOf(0, 1, 2, 3, 4)

	evicted := b.DropBefore(2)
	if len(evicted) != 2 {
		t.Fatalf("expected 2 evicted, got %d", len(evicted))
	}
	if evicted[0] != hits[0] || evicted[1] != hits[1] {
		t.Error("evicted hits are not the oldest prefix")
	}
	if b.Len() != 3 || b.Hits()[0] != hits[2] {
		t.Error("buffer must retain the suffix in order")
	}

	if again := b.DropBefore(2); again != nil {
		t.Errorf("second DropBefore must evict nothing, got %d", len(again))
	}
}

func TestHitBuffer_Remove(t *testing.T) {
	b, hits := bufferOf(0, 1, 1, 2)

	if !b.Remove(hits[2]) {
		t.Fatal("expected to remove an equal-time hit by identity")
	}
	if b.Len() != 3 {
		t.Errorf("expected 3 hits, got %d", b.Len())
	}
	if b.Remove(hits[2]) {
		t.Error("removing an absent hit must report false")
	}
}

func TestNeighboursSorted_Window(t *testing.T) {
	b, hits := bufferOf(0, 1, 2, 3, 10)
	q := hits[4] // time 10

	neighboursSorted(b.Hits(), q, 2, 99)
	if q.Neighbours.Len() != 0 {
		t.Errorf("no hit within eps=2 of t=10, got %d neighbours", q.Neighbours.Len())
	}

	// A query in the middle of the chain: channels are the hit indexes, so
	// distance mixes both axes. q2 at (3, 3) against (2, 2): sqrt(2) < 2.
	q2 := hits[3]
	neighboursSorted(b.Hits(), q2, 2, 99)
	if !q2.Neighbours.Contains(hits[2]) {
		t.Error("expected (2,2) within eps of (3,3)")
	}
	if q2.Neighbours.Contains(hits[0]) {
		t.Error("(0,0) is outside the time window of (3,3) at eps=2")
	}
}

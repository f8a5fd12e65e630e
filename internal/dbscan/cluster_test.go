package dbscan

import "testing"

func TestCluster_AddHit(t *testing.T) {
	c := &Cluster{Index: 7}

	h1 := NewHit(1, 0)
	h2 := NewHit(2, 0)
	h2.Connectedness = ConnCore
	c.AddHit(h1)
	c.AddHit(h2)
	c.AddHit(h1) // dedup

	if c.Size() != 2 {
		t.Fatalf("expected 2 members, got %d", c.Size())
	}
	if h1.Cluster != 7 || h2.Cluster != 7 {
		t.Error("members must carry the cluster index")
	}
	if c.LatestTime != 2 {
		t.Errorf("expected latest time 2, got %v", c.LatestTime)
	}
	if c.LatestCore != h2 {
		t.Error("expected the core member to become latest core point")
	}

	// An older core point must not displace a newer one.
	h0 := NewHit(0.5, 0)
	h0.Connectedness = ConnCore
	c.AddHit(h0)
	if c.LatestCore != h2 {
		t.Error("older core point displaced the latest core point")
	}
}

func TestCluster_AddHit_NoiseBecomesEdge(t *testing.T) {
	c := &Cluster{Index: 0}
	h := NewHit(1, 0)
	h.Connectedness = ConnNoise
	c.AddHit(h)
	if h.Connectedness != ConnEdge {
		t.Errorf("noise joining a cluster must become edge, got %v", h.Connectedness)
	}
}

func TestCluster_MaybeAttach(t *testing.T) {
	c := &Cluster{Index: 0}
	m1 := NewHit(1, 100)
	m2 := NewHit(2, 100)
	c.AddHit(m1)
	c.AddHit(m2)

	far := NewHit(10, 100)
	if c.MaybeAttach(far, 3, 2) {
		t.Error("hit far beyond eps must not attach")
	}
	if far.Cluster != ClusterUndefined {
		t.Error("rejected hit must stay unclustered")
	}

	near := NewHit(3, 100)
	if !c.MaybeAttach(near, 3, 2) {
		t.Fatal("hit within eps of members must attach")
	}
	if near.Cluster != 0 || c.Size() != 3 {
		t.Error("attached hit must join the membership")
	}
	// m2 gained a neighbour and reached minPts=2 including itself.
	if m2.Connectedness != ConnCore {
		t.Errorf("expected member to be reclassified core, got %v", m2.Connectedness)
	}
}

func TestCluster_MaybeAttach_DoesNotClaimTwice(t *testing.T) {
	c1 := &Cluster{Index: 0}
	c2 := &Cluster{Index: 1}
	m1 := NewHit(1, 100)
	m2 := NewHit(1, 103)
	c1.AddHit(m1)
	c2.AddHit(m2)

	bridge := NewHit(2, 101)
	if !c1.MaybeAttach(bridge, 3, 2) {
		t.Fatal("bridge must attach to the first cluster")
	}
	if !c2.MaybeAttach(bridge, 3, 2) {
		t.Fatal("bridge must still report neighbouring the second cluster")
	}
	if bridge.Cluster != 0 {
		t.Errorf("bridge must stay claimed by the first cluster, got %d", bridge.Cluster)
	}
	if c2.Hits.Contains(bridge) {
		t.Error("second cluster must not hold an already-claimed hit")
	}
}

func TestCluster_Steal(t *testing.T) {
	a := &Cluster{Index: 0}
	b := &Cluster{Index: 1}

	h1 := NewHit(1, 0)
	h2 := NewHit(2, 0)
	h2.Connectedness = ConnCore
	b.AddHit(h1)
	b.AddHit(h2)

	a.Steal(b)

	if a.Size() != 2 || b.Size() != 0 {
		t.Fatalf("expected all hits moved, got %d and %d", a.Size(), b.Size())
	}
	if h1.Cluster != 0 || h2.Cluster != 0 {
		t.Error("stolen hits must point at the surviving cluster")
	}
	if b.Completeness != Complete {
		t.Error("emptied cluster must be marked complete for removal")
	}
	if a.LatestCore != h2 || a.LatestTime != 2 {
		t.Error("survivor bookkeeping not refreshed by steal")
	}
}

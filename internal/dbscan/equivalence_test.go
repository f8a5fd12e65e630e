package dbscan

import (
	"math/rand"
	"sort"
	"testing"
)

// randomStream builds a time-sorted stream of points with bursty arrival
// times and a narrow channel band, the regime the engine is built for.
func randomStream(rng *rand.Rand, n int) []Point {
	points := make([]Point, n)
	t := 0.0
	for i := range points {
		// Mostly small steps with occasional long gaps, so clusters both
		// chain and finalize mid-stream.
		if rng.Float64() < 0.05 {
			t += 20 + rng.Float64()*30
		} else {
			t += rng.Float64() * 2
		}
		points[i] = Point{Time: t, Chan: rng.Intn(40)}
	}
	return points
}

func TestEngineMatchesBatch_RandomStreams(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		points := randomStream(rng, 250)

		for _, eps := range []float64{3, 5, 10} {
			e := NewEngine(eps, 2)
			var emitted []*Cluster
			for i, p := range points {
				if err := e.IngestPoint(p.Time, p.Chan); err != nil {
					t.Fatalf("seed %d eps %v: ingest %d: %v", seed, eps, i, err)
				}
				emitted = append(emitted, e.Drain()...)
				if i%16 == 15 {
					e.Trim()
				}
			}
			e.Flush()
			emitted = append(emitted, e.Drain()...)

			got := LabelsFromClusters(len(points), emitted)
			want := BatchDBSCAN(points, eps, 2)
			if !EquivalentPartitions(got, want) {
				t.Errorf("seed %d eps %v: partitions differ\nincremental: %v\nbatch:       %v",
					seed, eps, got, want)
			}
		}
	}
}

func TestEngineMatchesBatch_EqualTimes(t *testing.T) {
	// Bursts of hits sharing one timestamp stress the tie handling in the
	// buffer and neighbour scan.
	rng := rand.New(rand.NewSource(99))
	var points []Point
	t0 := 0.0
	for burst := 0; burst < 30; burst++ {
		t0 += rng.Float64() * 8
		for k := 0; k < 1+rng.Intn(5); k++ {
			points = append(points, Point{Time: t0, Chan: rng.Intn(25)})
		}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })

	e := NewEngine(4, 2)
	var emitted []*Cluster
	for _, p := range points {
		if err := e.IngestPoint(p.Time, p.Chan); err != nil {
			t.Fatal(err)
		}
		emitted = append(emitted, e.Drain()...)
	}
	e.Flush()
	emitted = append(emitted, e.Drain()...)

	got := LabelsFromClusters(len(points), emitted)
	want := BatchDBSCAN(points, 4, 2)
	if !EquivalentPartitions(got, want) {
		t.Errorf("partitions differ\nincremental: %v\nbatch:       %v", got, want)
	}
}

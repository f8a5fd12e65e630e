package dbscan

// BatchDBSCAN runs the textbook (whole-dataset) DBSCAN over points with the
// same Euclidean metric and strict-< neighbour rule as the engine. It
// returns one label per input point: 0..k-1 for cluster membership, -1 for
// noise. It exists as the reference the streaming engine is validated
// against and for the driver's test mode; it holds the full dataset in
// memory and makes no ordering assumptions.
func BatchDBSCAN(points []Point, eps float64, minPts int) []int {
	const (
		unvisited = -3
		noise     = -1
	)

	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	eps2 := eps * eps
	region := func(i int) []int {
		// Includes i itself, matching the minPts count convention.
		var nbr []int
		for j := 0; j < n; j++ {
			dt := points[i].Time - points[j].Time
			dc := float64(points[i].Chan - points[j].Chan)
			if dt*dt+dc*dc < eps2 {
				nbr = append(nbr, j)
			}
		}
		return nbr
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		nbr := region(i)
		if len(nbr) < minPts {
			labels[i] = noise
			continue
		}

		cid := next
		next++
		labels[i] = cid

		// Depth-first seed set, skipping i itself.
		seeds := make([]int, 0, len(nbr))
		for _, j := range nbr {
			if j != i {
				seeds = append(seeds, j)
			}
		}
		for len(seeds) > 0 {
			q := seeds[len(seeds)-1]
			seeds = seeds[:len(seeds)-1]
			if labels[q] == noise {
				labels[q] = cid // noise becomes a border point
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cid
			nbrq := region(q)
			if len(nbrq) >= minPts {
				seeds = append(seeds, nbrq...)
			}
		}
	}

	return labels
}

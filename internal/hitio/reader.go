// Package hitio reads raw trigger hit streams. The on-disk format is
// whitespace-delimited "channel time_ticks" pairs; tick timestamps are
// normalized so the first one seen is zero and scaled down by 100 to the
// engine's time units.
package hitio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
)

// TickScale converts raw timestamp ticks to engine time units.
const TickScale = 100

// ReadPoints parses "channel time_ticks" pairs from r. The first nskip
// records are dropped (after timestamp normalization, which always uses the
// first record in the stream); nhits > 0 caps the number of records
// returned.
func ReadPoints(r io.Reader, nskip, nhits int) ([]dbscan.Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	var points []dbscan.Point
	var firstTicks uint64
	haveFirst := false
	read := 0

	for {
		chanTok, ok := next()
		if !ok {
			break
		}
		tickTok, ok := next()
		if !ok {
			return nil, fmt.Errorf("hitio: odd token count: channel %q has no timestamp", chanTok)
		}

		channel, err := strconv.Atoi(chanTok)
		if err != nil {
			return nil, fmt.Errorf("hitio: bad channel %q: %w", chanTok, err)
		}
		ticks, err := strconv.ParseUint(tickTok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hitio: bad timestamp %q: %w", tickTok, err)
		}

		if !haveFirst {
			firstTicks = ticks
			haveFirst = true
		}

		read++
		if read <= nskip {
			continue
		}
		if nhits > 0 && read > nskip+nhits {
			break
		}

		points = append(points, dbscan.Point{
			Time: float64(int64(ticks)-int64(firstTicks)) / TickScale,
			Chan: channel,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hitio: read: %w", err)
	}

	return points, nil
}

// ReadPointsFile opens path and reads it with ReadPoints.
func ReadPointsFile(path string, nskip, nhits int) ([]dbscan.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hitio: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPoints(f, nskip, nhits)
}

// SortByTime sorts points into the non-decreasing time order the engine
// requires. The sort is stable so records sharing a timestamp keep their
// file order.
func SortByTime(points []dbscan.Point) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
}

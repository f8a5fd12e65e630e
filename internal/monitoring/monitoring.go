// Package monitoring carries the process-wide diagnostic logger and the
// throughput counters shared by the ingest paths.
package monitoring

import (
	"log"
	"sync"
	"time"
)

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Tests and embedding programs can redirect or mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger; nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// IngestStats tracks hit and cluster throughput with thread-safe counters.
// One instance is shared between the producer (file loop or UDP listener)
// and the periodic stats logger.
type IngestStats struct {
	mu           sync.Mutex
	hitCount     int64
	clusterCount int64
	packetCount  int64
	byteCount    int64
	droppedCount int64
	lastReset    time.Time
}

// NewIngestStats returns a zeroed stats tracker.
func NewIngestStats() *IngestStats {
	return &IngestStats{lastReset: time.Now()}
}

// AddHits adds n ingested hits.
func (s *IngestStats) AddHits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hitCount += int64(n)
}

// AddClusters adds n finalized clusters.
func (s *IngestStats) AddClusters(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterCount += int64(n)
}

// AddPacket counts one received datagram of the given size.
func (s *IngestStats) AddPacket(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packetCount++
	s.byteCount += int64(bytes)
}

// AddDropped counts one malformed or discarded record.
func (s *IngestStats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedCount++
}

// GetAndReset returns the counters accumulated since the last reset along
// with the elapsed interval, then zeroes them.
func (s *IngestStats) GetAndReset() (hits, clusters, packets, bytes, dropped int64, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	elapsed = now.Sub(s.lastReset)
	hits = s.hitCount
	clusters = s.clusterCount
	packets = s.packetCount
	bytes = s.byteCount
	dropped = s.droppedCount

	s.hitCount = 0
	s.clusterCount = 0
	s.packetCount = 0
	s.byteCount = 0
	s.droppedCount = 0
	s.lastReset = now
	return
}

// LogStats emits one rate line through Logf and resets the counters. Quiet
// intervals with no activity are skipped.
func (s *IngestStats) LogStats() {
	hits, clusters, packets, _, dropped, elapsed := s.GetAndReset()
	if hits == 0 && dropped == 0 {
		return
	}
	secs := elapsed.Seconds()
	if secs <= 0 {
		return
	}
	if packets > 0 {
		Logf("ingest stats (/sec): %.0f hits, %.1f packets, %.2f clusters, %d dropped",
			float64(hits)/secs, float64(packets)/secs, float64(clusters)/secs, dropped)
		return
	}
	Logf("ingest stats (/sec): %.0f hits, %.2f clusters", float64(hits)/secs, float64(clusters)/secs)
}

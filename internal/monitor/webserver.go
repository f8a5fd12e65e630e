// Package monitor exposes a small HTTP interface over a running clustering
// pipeline: engine counters as JSON and a scatter chart of the most recent
// finalized clusters.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
	"github.com/banshee-data/trigger.stream/internal/monitoring"
)

// ClusterSummary is the monitor's snapshot of one finalized cluster. The
// member coordinates are copied out so the engine can recycle the hits.
type ClusterSummary struct {
	Index     int            `json:"index"`
	Size      int            `json:"size"`
	FirstTime float64        `json:"first_time"`
	LastTime  float64        `json:"last_time"`
	Hits      []dbscan.Point `json:"hits"`
}

// SummarizeCluster copies the monitor-relevant parts of a cluster.
func SummarizeCluster(c *dbscan.Cluster) ClusterSummary {
	first, last := c.TimeSpan()
	s := ClusterSummary{
		Index:     c.Index,
		Size:      c.Size(),
		FirstTime: first,
		LastTime:  last,
		Hits:      make([]dbscan.Point, 0, c.Size()),
	}
	for _, h := range c.Hits.Hits() {
		s.Hits = append(s.Hits, dbscan.Point{Time: h.Time, Chan: h.Chan})
	}
	return s
}

// WebServer handles the HTTP monitoring interface for a clustering run.
type WebServer struct {
	address string
	server  *http.Server

	mu      sync.Mutex
	recent  []ClusterSummary // ring, newest last
	keep    int
	total   int
	hitsIn  int
	started time.Time
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address        string
	RecentClusters int // how many finalized clusters to retain for charts
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	keep := config.RecentClusters
	if keep <= 0 {
		keep = 64
	}
	ws := &WebServer{
		address: config.Address,
		keep:    keep,
		started: time.Now(),
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// RecordCluster retains a finalized cluster for the chart endpoints and
// bumps the totals. Safe to call from the ingest loop.
func (ws *WebServer) RecordCluster(c *dbscan.Cluster) {
	summary := SummarizeCluster(c)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.total++
	ws.recent = append(ws.recent, summary)
	if len(ws.recent) > ws.keep {
		ws.recent = ws.recent[len(ws.recent)-ws.keep:]
	}
}

// RecordHits bumps the ingested-hit total shown by /api/stats.
func (ws *WebServer) RecordHits(n int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.hitsIn += n
}

// Start begins serving in a goroutine and shuts down when ctx is done.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	monitoring.Logf("monitor listening on %s", ws.address)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return ws.server.Shutdown(shutdownCtx)
	}
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", ws.handleHealth)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/clusters", ws.handleClusters)
	mux.HandleFunc("/debug/clusters", ws.handleClusterChart)
	return mux
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	resp := map[string]interface{}{
		"hits_ingested":   ws.hitsIn,
		"clusters_total":  ws.total,
		"clusters_recent": len(ws.recent),
		"uptime_seconds":  time.Since(ws.started).Seconds(),
	}
	ws.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (ws *WebServer) handleClusters(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	recent := make([]ClusterSummary, len(ws.recent))
	copy(recent, ws.recent)
	ws.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recent)
}

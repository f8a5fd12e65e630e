package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
)

func testServer() *WebServer {
	return NewWebServer(WebServerConfig{
		Address:        ":0",
		RecentClusters: 3,
	})
}

func makeCluster(index int, points ...dbscan.Point) *dbscan.Cluster {
	c := &dbscan.Cluster{Index: index}
	for i, p := range points {
		h := dbscan.NewHit(p.Time, p.Chan)
		h.Seq = i
		c.AddHit(h)
	}
	return c
}

func TestWebServer_Health(t *testing.T) {
	ws := testServer()
	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}
}

func TestWebServer_StatsAndClusters(t *testing.T) {
	ws := testServer()
	ws.RecordHits(7)
	ws.RecordCluster(makeCluster(0, dbscan.Point{Time: 1, Chan: 5}, dbscan.Point{Time: 2, Chan: 6}))

	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats["hits_ingested"].(float64) != 7 || stats["clusters_total"].(float64) != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}

	rec = httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clusters", nil))
	var clusters []ClusterSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &clusters); err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 1 || clusters[0].Size != 2 || len(clusters[0].Hits) != 2 {
		t.Errorf("unexpected clusters payload: %+v", clusters)
	}
}

func TestWebServer_RecentRing(t *testing.T) {
	ws := testServer() // keeps 3
	for i := 0; i < 5; i++ {
		ws.RecordCluster(makeCluster(i, dbscan.Point{Time: float64(i), Chan: 1}))
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.recent) != 3 {
		t.Fatalf("expected ring of 3, got %d", len(ws.recent))
	}
	if ws.recent[0].Index != 2 || ws.recent[2].Index != 4 {
		t.Errorf("ring must keep the newest clusters, got %d..%d", ws.recent[0].Index, ws.recent[2].Index)
	}
	if ws.total != 5 {
		t.Errorf("total must count all clusters, got %d", ws.total)
	}
}

func TestWebServer_ClusterChart(t *testing.T) {
	ws := testServer()

	rec := httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/clusters", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty monitor must 404 the chart, got %d", rec.Code)
	}

	ws.RecordCluster(makeCluster(0, dbscan.Point{Time: 1, Chan: 5}, dbscan.Point{Time: 1.5, Chan: 6}))
	rec = httptest.NewRecorder()
	ws.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/clusters", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("chart returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("chart content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "cluster 0") {
		t.Error("chart must name the rendered cluster series")
	}
}

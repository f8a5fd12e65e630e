package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleClusterChart renders an HTML scatter of the retained clusters using
// go-echarts: channel on X, time on Y, one series per cluster. This is a
// debugging-only endpoint to eyeball cluster shapes without external
// tooling.
// Query params:
//   - max_clusters (optional) to cap the number of series rendered
func (ws *WebServer) handleClusterChart(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	recent := make([]ClusterSummary, len(ws.recent))
	copy(recent, ws.recent)
	ws.mu.Unlock()

	if len(recent) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no finalized clusters retained yet")
		return
	}

	maxClusters := len(recent)
	if mc := r.URL.Query().Get("max_clusters"); mc != "" {
		if v, err := strconv.Atoi(mc); err == nil && v > 0 && v < maxClusters {
			maxClusters = v
		}
	}
	// Newest clusters are the interesting ones; keep the tail.
	recent = recent[len(recent)-maxClusters:]

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Finalized clusters",
			Theme:     "dark",
			Width:     "1100px",
			Height:    "800px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Finalized clusters",
			Subtitle: fmt.Sprintf("clusters=%d", len(recent)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "channel", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "time", NameLocation: "middle", NameGap: 40}),
	)

	for _, c := range recent {
		data := make([]opts.ScatterData, 0, len(c.Hits))
		for _, h := range c.Hits {
			data = append(data, opts.ScatterData{Value: []interface{}{h.Chan, h.Time}})
		}
		scatter.AddSeries(fmt.Sprintf("cluster %d", c.Index), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

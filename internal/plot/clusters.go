// Package plot renders cluster assignments for offline inspection. The
// scatter follows the conventional event-display layout: channel on the
// horizontal axis, time on the vertical axis, one colour per cluster with
// noise in grey.
package plot

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trigger.stream/internal/dbscan"
)

// clusterPalette cycles across clusters; noise uses noiseGrey.
var clusterPalette = []color.RGBA{
	{R: 0xd6, G: 0x2b, B: 0x28, A: 0xff}, // red
	{R: 0x1f, G: 0x4e, B: 0xb0, A: 0xff}, // blue
	{R: 0x1d, G: 0x8a, B: 0x3c, A: 0xff}, // green
	{R: 0x9c, G: 0x27, B: 0xa6, A: 0xff}, // magenta
	{R: 0xe8, G: 0x7c, B: 0x1e, A: 0xff}, // orange
	{R: 0x13, G: 0x96, B: 0xa3, A: 0xff}, // cyan
}

var noiseGrey = color.RGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}

// SaveClusterScatter writes a PNG of points coloured by their label
// (negative labels are noise) to path. points and labels must have equal
// length.
func SaveClusterScatter(path, title string, points []dbscan.Point, labels []int) error {
	if len(points) != len(labels) {
		return fmt.Errorf("plot: %d points but %d labels", len(points), len(labels))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "channel"
	p.Y.Label.Text = "time"

	// Group points by label so each cluster becomes one scatter series.
	groups := map[int]plotter.XYs{}
	for i, pt := range points {
		l := labels[i]
		if l < 0 {
			l = -1
		}
		groups[l] = append(groups[l], plotter.XY{X: float64(pt.Chan), Y: pt.Time})
	}

	// Clusters in ascending label order for stable colour assignment.
	var order []int
	for l := range groups {
		order = append(order, l)
	}
	sort.Ints(order)

	colIndex := 0
	for _, l := range order {
		s, err := plotter.NewScatter(groups[l])
		if err != nil {
			return fmt.Errorf("plot: scatter for label %d: %w", l, err)
		}
		s.GlyphStyle.Radius = vg.Points(2)
		if l < 0 {
			s.GlyphStyle.Color = noiseGrey
		} else {
			s.GlyphStyle.Color = clusterPalette[colIndex%len(clusterPalette)]
			colIndex++
			p.Legend.Add(fmt.Sprintf("cluster %d", l), s)
		}
		p.Add(s)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

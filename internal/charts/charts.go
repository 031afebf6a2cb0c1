// Package charts renders the diagnostic plots: a depth histogram, the
// fitted occupancy curve with its confidence band, and a site map. Charts
// are presentation-only; nothing downstream consumes them.
package charts

import (
	"image/color"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/prairiefish/survey-cli/internal/model"
)

// Config holds chart styling, passed explicitly into each renderer.
type Config struct {
	WidthInches  float64
	HeightInches float64
}

// DefaultConfig returns the standard chart size.
func DefaultConfig() Config {
	return Config{WidthInches: 8, HeightInches: 6}
}

func (c Config) size() (vg.Length, vg.Length) {
	w, h := c.WidthInches, c.HeightInches
	if w <= 0 {
		w = 8
	}
	if h <= 0 {
		h = 6
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

// DepthHistogram renders the distribution of candidate pool depths.
func DepthHistogram(depths []float64, path string, cfg Config) error {
	if len(depths) == 0 {
		return eris.New("charts: no depths to plot")
	}

	p := plot.New()
	p.Title.Text = "Candidate pool depth"
	p.X.Label.Text = "Mean depth (m)"
	p.Y.Label.Text = "Pools"

	values := make(plotter.Values, len(depths))
	copy(values, depths)

	hist, err := plotter.NewHist(values, 16)
	if err != nil {
		return eris.Wrap(err, "charts: build histogram")
	}
	hist.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(hist)

	w, h := cfg.size()
	if err := p.Save(w, h, path); err != nil {
		return eris.Wrap(err, "charts: save histogram")
	}
	return nil
}

// OccupancyCurve renders predicted occupancy over the depth range with
// dashed 95% confidence bounds.
func OccupancyCurve(predict func(depth float64) model.Prediction, minDepth, maxDepth float64, path string, cfg Config) error {
	if predict == nil {
		return eris.New("charts: prediction function is required")
	}
	if minDepth >= maxDepth {
		return eris.Errorf("charts: invalid depth range [%v, %v]", minDepth, maxDepth)
	}

	const points = 100
	fit := make(plotter.XYs, points)
	lower := make(plotter.XYs, points)
	upper := make(plotter.XYs, points)
	step := (maxDepth - minDepth) / float64(points-1)
	for i := 0; i < points; i++ {
		depth := minDepth + float64(i)*step
		pred := predict(depth)
		fit[i] = plotter.XY{X: depth, Y: pred.Psi}
		lower[i] = plotter.XY{X: depth, Y: pred.Lower}
		upper[i] = plotter.XY{X: depth, Y: pred.Upper}
	}

	p := plot.New()
	p.Title.Text = "Occupancy probability by pool depth"
	p.X.Label.Text = "Mean depth (m)"
	p.Y.Label.Text = "Predicted occupancy"
	p.Y.Min = 0
	p.Y.Max = 1

	fitLine, err := plotter.NewLine(fit)
	if err != nil {
		return eris.Wrap(err, "charts: build fit line")
	}
	fitLine.Color = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	fitLine.Width = vg.Points(2)
	p.Add(fitLine)

	for _, bound := range []plotter.XYs{lower, upper} {
		line, err := plotter.NewLine(bound)
		if err != nil {
			return eris.Wrap(err, "charts: build confidence bound")
		}
		line.Color = color.RGBA{R: 34, G: 139, B: 34, A: 255}
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
	}
	p.Add(plotter.NewGrid())

	w, h := cfg.size()
	if err := p.Save(w, h, path); err != nil {
		return eris.Wrap(err, "charts: save occupancy curve")
	}
	return nil
}

// SiteMap renders all candidate sites as a lon/lat scatter with the
// selected sites highlighted.
func SiteMap(candidates []model.Site, selected map[string]bool, path string, cfg Config) error {
	if len(candidates) == 0 {
		return eris.New("charts: no sites to plot")
	}

	var picked, rest plotter.XYs
	for _, s := range candidates {
		pt := plotter.XY{X: s.Longitude, Y: s.Latitude}
		if selected[s.PoolID] {
			picked = append(picked, pt)
		} else {
			rest = append(rest, pt)
		}
	}

	p := plot.New()
	p.Title.Text = "Candidate pools"
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	if len(rest) > 0 {
		scatter, err := plotter.NewScatter(rest)
		if err != nil {
			return eris.Wrap(err, "charts: build candidate scatter")
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("not selected", scatter)
	}
	if len(picked) > 0 {
		scatter, err := plotter.NewScatter(picked)
		if err != nil {
			return eris.Wrap(err, "charts: build selected scatter")
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 0, G: 100, B: 0, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add("selected", scatter)
	}
	p.Add(plotter.NewGrid())

	w, h := cfg.size()
	if err := p.Save(w, h, path); err != nil {
		return eris.Wrap(err, "charts: save site map")
	}
	return nil
}

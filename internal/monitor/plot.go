package monitor

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"freeswim-tracker/internal/attribute"
)

var (
	totalColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	filteredColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// renderCounts plots both particle counters against frame sequence as PNG.
func renderCounts(history []attribute.Counts, width, height vg.Length) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Particle counts"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Count"
	p.Y.Min = 0

	total := make(plotter.XYs, 0, len(history))
	filtered := make(plotter.XYs, 0, len(history))
	for _, c := range history {
		total = append(total, plotter.XY{X: float64(c.Sequence), Y: float64(c.Total)})
		filtered = append(filtered, plotter.XY{X: float64(c.Sequence), Y: float64(c.Filtered)})
	}

	if len(history) > 0 {
		for _, s := range []struct {
			label string
			pts   plotter.XYs
			color color.Color
		}{
			{attribute.CountTotal, total, totalColor},
			{attribute.CountFiltered, filtered, filteredColor},
		} {
			line, err := plotter.NewLine(s.pts)
			if err != nil {
				return nil, err
			}
			line.Color = s.color
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(s.label, line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

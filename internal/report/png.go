package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveConfidencePNG writes a static confidence-over-frames plot with
// one line per region, colored with the region's overlay color.
func SaveConfidencePNG(d *Data, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s - Region Confidence", d.Session.SessionID)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Confidence"
	p.Y.Min = 0
	p.Y.Max = 1.05

	byRegion := observationsByRegion(d)
	for i, reg := range d.Regions {
		series := byRegion[reg.RegionID]
		if len(series) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(series))
		for _, o := range series {
			pts = append(pts, plotter.XY{X: float64(o.FrameIndex), Y: o.Confidence})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot region %s: %w", reg.RegionID, err)
		}
		line.Color = parseHexColor(reg.Color)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(regionLabel(i, reg.RegionID), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save confidence plot: %w", err)
	}
	return nil
}

// parseHexColor decodes a "#RRGGBB" overlay color, falling back to gray
// for anything malformed.
func parseHexColor(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{R: 0x9E, G: 0x9E, B: 0x9E, A: 255}
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

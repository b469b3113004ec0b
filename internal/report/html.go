package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHTML writes an interactive report page for the session: a
// confidence timeline per region and an update-coverage bar chart.
func RenderHTML(w io.Writer, d *Data) error {
	page := components.NewPage()
	page.AddCharts(confidenceChart(d), coverageChart(d))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report for %s: %w", d.Session.SessionID, err)
	}
	return nil
}

// confidenceChart plots each region's confidence over the processed
// frames. Frames where a region produced no observation render as gaps.
func confidenceChart(d *Data) *charts.Line {
	frames := observedFrames(d)
	byRegion := observationsByRegion(d)

	xAxis := make([]string, len(frames))
	for i, f := range frames {
		xAxis[i] = strconv.Itoa(f)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Session " + d.Session.SessionID,
			Theme:     "dark",
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Region Confidence",
			Subtitle: fmt.Sprintf("session=%s mode=%s precision=%s state=%s frames=%d",
				d.Session.SessionID, d.Session.Mode, d.Session.Precision,
				d.Session.State, d.Session.FrameCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence"}),
	)

	line.SetXAxis(xAxis)
	for i, reg := range d.Regions {
		byFrame := make(map[int]float64, len(byRegion[reg.RegionID]))
		for _, o := range byRegion[reg.RegionID] {
			byFrame[o.FrameIndex] = o.Confidence
		}
		series := make([]opts.LineData, len(frames))
		for j, f := range frames {
			if conf, ok := byFrame[f]; ok {
				series[j] = opts.LineData{Value: conf}
			} else {
				series[j] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(regionLabel(i, reg.RegionID), series,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: reg.Color}),
		)
	}
	return line
}

// coverageChart shows how many frames produced an observation for each
// region.
func coverageChart(d *Data) *charts.Bar {
	byRegion := observationsByRegion(d)

	x := make([]string, len(d.Regions))
	y := make([]opts.BarData, len(d.Regions))
	for i, reg := range d.Regions {
		x[i] = regionLabel(i, reg.RegionID)
		y[i] = opts.BarData{
			Value:     len(byRegion[reg.RegionID]),
			ItemStyle: &opts.ItemStyle{Color: reg.Color},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  "dark",
			Width:  "1200px",
			Height: "400px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Update Coverage",
			Subtitle: fmt.Sprintf("frames processed: %d", d.Session.FrameCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("updates", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

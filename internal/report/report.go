// Package report renders stored tracking sessions into human-readable
// artifacts: an HTML page of interactive charts, a PNG confidence plot,
// and per-region statistics.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/keyframe-systems/regiontrack/internal/store"
)

// Data is everything a session report draws from.
type Data struct {
	Session      store.SessionRecord
	Regions      []store.RegionRecord
	Observations []store.ObservationRecord
}

// Load fetches a session and its regions and observations from the
// store.
func Load(st *store.Store, sessionID string) (*Data, error) {
	session, err := st.Session(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	regions, err := st.SessionRegions(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load regions for %s: %w", sessionID, err)
	}
	obs, err := st.Observations(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load observations for %s: %w", sessionID, err)
	}
	return &Data{Session: session, Regions: regions, Observations: obs}, nil
}

// RegionSummary aggregates one region's confidence series.
type RegionSummary struct {
	RegionID string  `json:"region_id"`
	Color    string  `json:"color"`
	Samples  int     `json:"samples"`
	Coverage float64 `json:"coverage"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	P25      float64 `json:"p25"`
	P50      float64 `json:"p50"`
	P90      float64 `json:"p90"`
}

// Summarize computes per-region confidence statistics in nomination
// order. Coverage is the fraction of processed frames that produced an
// observation for the region.
func Summarize(d *Data) []RegionSummary {
	byRegion := observationsByRegion(d)

	out := make([]RegionSummary, 0, len(d.Regions))
	for _, reg := range d.Regions {
		s := RegionSummary{RegionID: reg.RegionID, Color: reg.Color}
		series := byRegion[reg.RegionID]
		s.Samples = len(series)
		if d.Session.FrameCount > 0 {
			s.Coverage = float64(len(series)) / float64(d.Session.FrameCount)
		}
		if len(series) == 0 {
			out = append(out, s)
			continue
		}

		conf := make([]float64, len(series))
		for i, o := range series {
			conf[i] = o.Confidence
		}
		sort.Float64s(conf)

		s.Min = conf[0]
		s.Max = conf[len(conf)-1]
		s.Mean = stat.Mean(conf, nil)
		if len(conf) > 1 {
			s.StdDev = stat.StdDev(conf, nil)
		}
		s.P25 = stat.Quantile(0.25, stat.Empirical, conf, nil)
		s.P50 = stat.Quantile(0.50, stat.Empirical, conf, nil)
		s.P90 = stat.Quantile(0.90, stat.Empirical, conf, nil)
		out = append(out, s)
	}
	return out
}

// WriteFiles renders the report artifacts into dir: report.html and
// confidence.png.
func (d *Data) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	htmlPath := filepath.Join(dir, "report.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", htmlPath, err)
	}
	if err := RenderHTML(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", htmlPath, err)
	}

	return SaveConfidencePNG(d, filepath.Join(dir, "confidence.png"))
}

// observationsByRegion groups observations per region, ordered by frame
// index within each group.
func observationsByRegion(d *Data) map[string][]store.ObservationRecord {
	byRegion := make(map[string][]store.ObservationRecord, len(d.Regions))
	for _, o := range d.Observations {
		byRegion[o.RegionID] = append(byRegion[o.RegionID], o)
	}
	for _, series := range byRegion {
		sort.Slice(series, func(i, j int) bool {
			return series[i].FrameIndex < series[j].FrameIndex
		})
	}
	return byRegion
}

// observedFrames returns the sorted distinct frame indexes present in
// the observation set.
func observedFrames(d *Data) []int {
	seen := make(map[int]bool)
	for _, o := range d.Observations {
		seen[o.FrameIndex] = true
	}
	frames := make([]int, 0, len(seen))
	for f := range seen {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// regionLabel is the short display name for a region series.
func regionLabel(index int, regionID string) string {
	id := regionID
	if len(id) > 12 {
		id = id[:12]
	}
	return fmt.Sprintf("#%d %s", index+1, id)
}

package vision

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var _ track.Detector = (*GradientDetector)(nil)

// GradientDetector proposes rectangular regions by splitting the frame
// into a grid of cells, measuring the gradient energy of each cell, and
// merging connected cells whose energy stands out against the frame
// average. Proposals violating the aspect ratio or minimum size bounds
// are discarded, and at most the configured number of proposals is
// returned, ordered by descending confidence.
type GradientDetector struct {
	cfg *config.TuningConfig
}

func NewGradientDetector(cfg *config.TuningConfig) *GradientDetector {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &GradientDetector{cfg: cfg}
}

func (d *GradientDetector) DetectRectangles(frame *video.Frame, _ video.Orientation) ([]track.Proposal, error) {
	if frame == nil || frame.Pixels == nil {
		return nil, errors.New("no pixel data in frame")
	}
	plane := newGrayPlane(frame.Pixels)
	if plane.w < 2 || plane.h < 2 {
		return nil, errors.New("frame too small to analyze")
	}

	grid := d.cfg.GetDetectorGridSize()
	if grid > plane.w {
		grid = plane.w
	}
	if grid > plane.h {
		grid = plane.h
	}
	energy := cellEnergies(plane, grid)

	var mean float64
	for _, e := range energy {
		mean += e
	}
	mean /= float64(len(energy))
	threshold := mean * d.cfg.GetDetectorEnergyThreshold()
	if threshold < 1e-6 {
		threshold = 1e-6
	}

	comps := connectedCells(energy, grid, threshold)

	proposals := make([]track.Proposal, 0, len(comps))
	var maxSaliency float64
	for _, c := range comps {
		r := cellRect(c, grid, plane.w, plane.h)
		nr := geom.NormRect(r, plane.w, plane.h)
		w, h := nr.X.Length(), nr.Y.Length()
		if math.Min(w, h) < d.cfg.GetDetectorMinSize() {
			continue
		}
		aspect := geom.AspectRatio(nr)
		if aspect < d.cfg.GetDetectorMinAspect() || aspect > d.cfg.GetDetectorMaxAspect() {
			continue
		}
		proposals = append(proposals, track.Proposal{
			Quad:       geom.QuadFromRect(nr),
			Confidence: c.meanEnergy,
		})
		if c.meanEnergy > maxSaliency {
			maxSaliency = c.meanEnergy
		}
	}
	if maxSaliency > 0 {
		for i := range proposals {
			proposals[i].Confidence /= maxSaliency
		}
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Confidence > proposals[j].Confidence
	})
	if max := d.cfg.GetDetectorMaxResults(); len(proposals) > max {
		proposals = proposals[:max]
	}
	return proposals, nil
}

// cellEnergies returns the mean absolute gradient per grid cell,
// row-major over a grid x grid layout.
func cellEnergies(p *grayPlane, grid int) []float64 {
	energy := make([]float64, grid*grid)
	count := make([]int, grid*grid)
	for y := 0; y < p.h-1; y++ {
		cy := y * grid / p.h
		for x := 0; x < p.w-1; x++ {
			i := y*p.w + x
			g := math.Abs(p.gray[i+1]-p.gray[i]) + math.Abs(p.gray[i+p.w]-p.gray[i])
			ci := cy*grid + x*grid/p.w
			energy[ci] += g
			count[ci]++
		}
	}
	for i := range energy {
		if count[i] > 0 {
			energy[i] /= float64(count[i])
		}
	}
	return energy
}

// cellComponent is a 4-connected group of grid cells above threshold.
type cellComponent struct {
	minX, minY, maxX, maxY int
	meanEnergy             float64
}

func connectedCells(energy []float64, grid int, threshold float64) []cellComponent {
	seen := make([]bool, len(energy))
	var comps []cellComponent
	for start, e := range energy {
		if seen[start] || e <= threshold {
			continue
		}
		comp := cellComponent{minX: grid, minY: grid, maxX: -1, maxY: -1}
		var total float64
		var cells int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			cx, cy := i%grid, i/grid
			if cx < comp.minX {
				comp.minX = cx
			}
			if cy < comp.minY {
				comp.minY = cy
			}
			if cx > comp.maxX {
				comp.maxX = cx
			}
			if cy > comp.maxY {
				comp.maxY = cy
			}
			total += energy[i]
			cells++
			for _, n := range [4]int{i - 1, i + 1, i - grid, i + grid} {
				if n < 0 || n >= len(energy) || seen[n] {
					continue
				}
				// Avoid wrapping across row edges.
				if (n == i-1 && cx == 0) || (n == i+1 && cx == grid-1) {
					continue
				}
				if energy[n] > threshold {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		comp.meanEnergy = total / float64(cells)
		comps = append(comps, comp)
	}
	return comps
}

// cellRect converts a component's cell bounds into a pixel rectangle.
func cellRect(c cellComponent, grid, w, h int) image.Rectangle {
	return image.Rect(
		c.minX*w/grid,
		c.minY*h/grid,
		(c.maxX+1)*w/grid,
		(c.maxY+1)*h/grid,
	)
}

package vision

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"

	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var _ track.Tracker = (*TemplateTracker)(nil)

// TemplateTracker relocates regions by normalized cross-correlation.
// The first request for a region captures a luminance template at the
// seed location; later requests search a window around the seed and
// report the translated quad. Regions whose best score falls below the
// configured floor are omitted from the results, and templates are
// refreshed whenever a match scores high enough to trust.
type TemplateTracker struct {
	cfg *config.TuningConfig

	mu        sync.Mutex
	templates map[track.RegionID]*template
}

func NewTemplateTracker(cfg *config.TuningConfig) *TemplateTracker {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &TemplateTracker{
		cfg:       cfg,
		templates: make(map[track.RegionID]*template),
	}
}

func (t *TemplateTracker) Track(frame *video.Frame, _ video.Orientation, batch []track.Request) ([]track.Observation, error) {
	if frame == nil || frame.Pixels == nil {
		return nil, fmt.Errorf("%w: no pixel data in frame", track.ErrCapabilityUnavailable)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Luminance planes are built once per call and shared across the
	// batch, keyed by downscale factor.
	planes := make(map[int]*grayPlane)
	planeFor := func(scale int) *grayPlane {
		if p, ok := planes[scale]; ok {
			return p
		}
		var p *grayPlane
		if scale > 1 {
			b := frame.Pixels.Bounds()
			small := imaging.Resize(frame.Pixels, b.Dx()/scale, b.Dy()/scale, imaging.Box)
			p = newGrayPlane(small)
		} else {
			p = newGrayPlane(frame.Pixels)
		}
		planes[scale] = p
		return p
	}

	results := make([]track.Observation, 0, len(batch))
	live := make(map[track.RegionID]struct{}, len(batch))
	for _, req := range batch {
		live[req.Seed.RegionID] = struct{}{}
		if obs, ok := t.trackOne(planeFor, req); ok {
			results = append(results, obs)
		}
	}
	// Drop templates for regions no longer in the batch so a renominated
	// session does not accumulate stale patches.
	for id := range t.templates {
		if _, ok := live[id]; !ok {
			delete(t.templates, id)
		}
	}
	return results, nil
}

func (t *TemplateTracker) trackOne(planeFor func(int) *grayPlane, req track.Request) (track.Observation, bool) {
	scale := 1
	if req.Precision == track.PrecisionFast {
		scale = t.cfg.GetFastDownscale()
	}
	plane := planeFor(scale)

	seed := req.Seed
	seedRect := geom.ImageRect(seed.Quad.Bound(), plane.w, plane.h)

	tpl := t.templates[seed.RegionID]
	if tpl == nil || tpl.scale != scale {
		tpl = captureTemplate(plane, seedRect, scale)
		if tpl == nil {
			return track.Observation{}, false
		}
		t.templates[seed.RegionID] = tpl
		return track.Observation{
			RegionID:   seed.RegionID,
			Kind:       seed.Kind,
			Quad:       seed.Quad,
			Confidence: 1.0,
		}, true
	}

	short := plane.w
	if plane.h < short {
		short = plane.h
	}
	radius := int(t.cfg.GetSearchRadius() * float64(short))
	if radius < 1 {
		radius = 1
	}
	search := image.Rect(
		seedRect.Min.X-radius, seedRect.Min.Y-radius,
		seedRect.Min.X+tpl.w+radius, seedRect.Min.Y+tpl.h+radius,
	)
	best, score, ok := matchTemplate(plane, tpl, search)
	if !ok || score < t.cfg.GetMinMatchScore() {
		return track.Observation{}, false
	}

	if score >= t.cfg.GetTemplateRefreshScore() {
		if fresh := captureTemplate(plane, image.Rect(best.X, best.Y, best.X+tpl.w, best.Y+tpl.h), scale); fresh != nil {
			t.templates[seed.RegionID] = fresh
		}
	}

	// Image y grows downward, normalized y upward.
	delta := r2.Point{
		X: float64(best.X-seedRect.Min.X) / float64(plane.w),
		Y: -float64(best.Y-seedRect.Min.Y) / float64(plane.h),
	}
	conf := score
	if conf > 1 {
		conf = 1
	}
	return track.Observation{
		RegionID:   seed.RegionID,
		Kind:       seed.Kind,
		Quad:       seed.Quad.Translate(delta),
		Confidence: conf,
	}, true
}

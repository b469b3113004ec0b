//go:build opencv

// Package opencv adapts OpenCV correlation trackers (via gocv) into a
// tracking capability. Build with -tags opencv and an OpenCV install
// with the contrib modules.
package opencv

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var _ track.Tracker = (*Tracker)(nil)

// Tracker runs one KCF tracker per region. Correlation trackers report
// only success or failure, so successful updates carry confidence 1 and
// failed updates omit the region and reinitialize it at its seed on the
// next frame.
type Tracker struct {
	mu       sync.Mutex
	trackers map[track.RegionID]gocv.Tracker
}

func NewTracker() *Tracker {
	return &Tracker{trackers: make(map[track.RegionID]gocv.Tracker)}
}

// Close releases every underlying OpenCV tracker.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, tr := range t.trackers {
		tr.Close()
		delete(t.trackers, id)
	}
	return nil
}

func (t *Tracker) Track(frame *video.Frame, _ video.Orientation, batch []track.Request) ([]track.Observation, error) {
	if frame == nil || frame.Pixels == nil {
		return nil, fmt.Errorf("%w: no pixel data in frame", track.ErrCapabilityUnavailable)
	}
	mat, err := matFromRGBA(frame.Pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", track.ErrCapabilityUnavailable, err)
	}
	defer mat.Close()

	b := frame.Pixels.Bounds()
	w, h := b.Dx(), b.Dy()

	t.mu.Lock()
	defer t.mu.Unlock()

	results := make([]track.Observation, 0, len(batch))
	live := make(map[track.RegionID]struct{}, len(batch))
	for _, req := range batch {
		seed := req.Seed
		live[seed.RegionID] = struct{}{}
		seedRect := geom.ImageRect(seed.Quad.Bound(), w, h)

		tr, ok := t.trackers[seed.RegionID]
		if !ok {
			tr = contrib.NewTrackerKCF()
			if !tr.Init(mat, seedRect) {
				tr.Close()
				continue
			}
			t.trackers[seed.RegionID] = tr
			results = append(results, track.Observation{
				RegionID:   seed.RegionID,
				Kind:       seed.Kind,
				Quad:       seed.Quad,
				Confidence: 1.0,
			})
			continue
		}

		rect, found := tr.Update(mat)
		if !found || rect.Empty() {
			tr.Close()
			delete(t.trackers, seed.RegionID)
			continue
		}
		results = append(results, track.Observation{
			RegionID:   seed.RegionID,
			Kind:       seed.Kind,
			Quad:       geom.QuadFromRect(geom.NormRect(rect, w, h)),
			Confidence: 1.0,
		})
	}
	for id, tr := range t.trackers {
		if _, ok := live[id]; !ok {
			tr.Close()
			delete(t.trackers, id)
		}
	}
	return results, nil
}

// matFromRGBA copies the pixels into a BGR mat, the layout the OpenCV
// trackers expect.
func matFromRGBA(img *image.RGBA) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := img.Pix
	if img.Stride != 4*w || b.Min != (image.Point{}) {
		tight := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(tight, tight.Bounds(), img, b.Min, draw.Src)
		pix = tight.Pix
	}
	rgba, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("mat from frame: %v", err)
	}
	defer rgba.Close()
	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

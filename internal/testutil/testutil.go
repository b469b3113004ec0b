// Package testutil provides shared session test doubles: canned
// tracking capabilities and frame sources with scripted behavior.
package testutil

import (
	"image"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var (
	_ track.Tracker = EchoTracker{}
	_ video.Source  = (*BlankSource)(nil)
)

// EchoTracker reports every seed back at its own position with a fixed
// confidence, optionally flagging each batch with an error.
type EchoTracker struct {
	Confidence float64
	BatchErr   error
}

func (e EchoTracker) Track(_ *video.Frame, _ video.Orientation, batch []track.Request) ([]track.Observation, error) {
	out := make([]track.Observation, 0, len(batch))
	for _, req := range batch {
		obs := req.Seed
		obs.Confidence = e.Confidence
		out = append(out, obs)
	}
	return out, e.BatchErr
}

// BlankSource produces blank frames forever, one per interval. It backs
// cancellation tests that need a run which never ends on its own.
type BlankSource struct {
	Interval time.Duration
}

func (s *BlankSource) Next() (*video.Frame, error) {
	time.Sleep(s.Interval)
	return &video.Frame{Pixels: image.NewRGBA(image.Rect(0, 0, 16, 16))}, nil
}

func (s *BlankSource) Orientation() video.Orientation { return video.OrientationUp }
func (s *BlankSource) DisplayTransform() geom.Affine  { return geom.IdentityAffine() }
func (s *BlankSource) FrameInterval() time.Duration   { return 0 }
func (s *BlankSource) Close() error                   { return nil }

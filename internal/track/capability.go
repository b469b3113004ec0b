package track

import (
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// Kind tags an observation with the kind of content that produced it.
// Results whose kind does not match the session mode are dropped
// without updating the region's seed.
type Kind string

const (
	KindObject    Kind = "object"
	KindRectangle Kind = "rectangle"
)

// KindForMode returns the observation kind a session mode consumes.
func KindForMode(m Mode) Kind {
	if m == ModeRectangle {
		return KindRectangle
	}
	return KindObject
}

// Observation is one id-carrying tracking result or seed: a quad in
// normalized coordinates plus the capability's confidence in it.
type Observation struct {
	RegionID   RegionID
	Kind       Kind
	Quad       geom.Quad
	Confidence float64
}

// Request seeds one region's tracking pass for a single frame.
type Request struct {
	Seed      Observation
	Precision Precision
}

// Proposal is a detector-suggested rectangle with its confidence.
// Proposals carry no region identity; nomination assigns ids.
type Proposal struct {
	Quad       geom.Quad
	Confidence float64
}

// Tracker relocates seeded regions in a frame. Implementations return
// one observation per request they could resolve, preserving the
// request's region id; unresolved requests are simply omitted. A
// batch-level error may accompany partial results. An error wrapping
// ErrCapabilityUnavailable means the capability could not run at all
// for this frame.
type Tracker interface {
	Track(frame *video.Frame, orientation video.Orientation, batch []Request) ([]Observation, error)
}

// Detector proposes initial rectangular regions on a single frame,
// ordered by descending confidence. Implementations enforce the
// detection bounds: aspect ratio within [0.2, 1.0], minimum dimension
// 0.1 of the frame, at most 10 proposals.
type Detector interface {
	DetectRectangles(frame *video.Frame, orientation video.Orientation) ([]Proposal, error)
}

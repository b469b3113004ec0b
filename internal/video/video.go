// Package video defines the frame source contract shared by tracking
// sessions, vision capabilities, and rendering sinks, together with a
// set of source implementations (image directories, ffmpeg pipes,
// synthetic streams).
package video

import (
	"image"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/geom"
)

// Orientation describes how a source's frames are rotated relative to
// their display orientation, in counterclockwise quarter turns.
type Orientation int

const (
	OrientationUp    Orientation = iota // frames are upright
	OrientationLeft                     // display needs one quarter turn
	OrientationDown                     // display needs a half turn
	OrientationRight                    // display needs three quarter turns
)

// String returns the orientation name.
func (o Orientation) String() string {
	switch o {
	case OrientationLeft:
		return "left"
	case OrientationDown:
		return "down"
	case OrientationRight:
		return "right"
	default:
		return "up"
	}
}

// QuarterTurns returns the counterclockwise quarter turns that map
// frame coordinates to display coordinates.
func (o Orientation) QuarterTurns() int {
	return int(o) % 4
}

// DisplayTransform returns the normalized-space transform that maps
// frame coordinates to display coordinates.
func (o Orientation) DisplayTransform() geom.Affine {
	return geom.UnitRotation(o.QuarterTurns())
}

// Frame is one decoded video frame.
type Frame struct {
	// Index is the frame's position in the stream, starting at 0 for
	// the first frame the source produced.
	Index int

	// Pixels holds the decoded image data.
	Pixels *image.RGBA

	// Timestamp is the presentation time relative to stream start.
	Timestamp time.Duration
}

// Bounds returns the pixel bounds of the frame, or the zero rectangle
// for a frame without pixel data.
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Pixels == nil {
		return image.Rectangle{}
	}
	return f.Pixels.Bounds()
}

// Source yields successive frames plus per-sequence orientation and
// timing metadata. Implementations are not safe for concurrent use;
// one consumer owns the source.
type Source interface {
	// Next returns the next frame, or io.EOF when the stream is
	// exhausted. Any other error is a non-recoverable source failure.
	Next() (*Frame, error)

	// Orientation reports the rotation of produced frames relative to
	// their display orientation.
	Orientation() Orientation

	// DisplayTransform returns the frame-to-display coordinate
	// correction for produced frames.
	DisplayTransform() geom.Affine

	// FrameInterval returns the nominal duration of one frame, used
	// for advisory playback pacing. Zero means unknown.
	FrameInterval() time.Duration

	// Close releases the source's resources.
	Close() error
}

package video

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/geom"
)

// SyntheticOptions configures a generated test stream.
type SyntheticOptions struct {
	Width, Height int
	// FrameCount is the number of frames before the stream ends.
	FrameCount int
	// SquareSize is the side of the moving square in pixels.
	SquareSize int
	// StepX, StepY move the square per frame, in pixels. Image y grows
	// downward.
	StepX, StepY int
	Interval     time.Duration
	Orientation  Orientation
}

func (o *SyntheticOptions) fill() {
	if o.Width <= 0 {
		o.Width = 320
	}
	if o.Height <= 0 {
		o.Height = 240
	}
	if o.FrameCount <= 0 {
		o.FrameCount = 90
	}
	if o.SquareSize <= 0 {
		o.SquareSize = o.Height / 6
	}
	if o.StepX == 0 && o.StepY == 0 {
		o.StepX = 2
	}
	if o.Interval <= 0 {
		o.Interval = time.Second / 30
	}
}

// SyntheticSource generates frames of a white square sliding over a
// black background. It exists for demos and tests that need a stream
// with trackable content but no media files.
type SyntheticSource struct {
	opts SyntheticOptions
	next int
}

var _ Source = (*SyntheticSource)(nil)

func NewSyntheticSource(opts SyntheticOptions) *SyntheticSource {
	opts.fill()
	return &SyntheticSource{opts: opts}
}

// SquareAt returns the square's pixel rectangle on the given frame
// index, clamped so the square stays inside the canvas.
func (s *SyntheticSource) SquareAt(index int) image.Rectangle {
	o := s.opts
	x := o.Width/8 + o.StepX*index
	y := o.Height/8 + o.StepY*index
	x = clampInt(x, 0, o.Width-o.SquareSize)
	y = clampInt(y, 0, o.Height-o.SquareSize)
	return image.Rect(x, y, x+o.SquareSize, y+o.SquareSize)
}

func (s *SyntheticSource) Next() (*Frame, error) {
	if s.next >= s.opts.FrameCount {
		return nil, io.EOF
	}
	img := image.NewRGBA(image.Rect(0, 0, s.opts.Width, s.opts.Height))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	draw.Draw(img, s.SquareAt(s.next), &image.Uniform{C: white}, image.Point{}, draw.Src)
	f := &Frame{
		Index:     s.next,
		Pixels:    img,
		Timestamp: time.Duration(s.next) * s.opts.Interval,
	}
	s.next++
	return f, nil
}

func (s *SyntheticSource) Orientation() Orientation { return s.opts.Orientation }

func (s *SyntheticSource) DisplayTransform() geom.Affine {
	return s.opts.Orientation.DisplayTransform()
}

func (s *SyntheticSource) FrameInterval() time.Duration { return s.opts.Interval }

func (s *SyntheticSource) Close() error { return nil }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package video

import (
	"errors"
	"image/color"
	"io"
	"testing"
	"time"
)

func TestSyntheticSourceProducesConfiguredFrameCount(t *testing.T) {
	src := NewSyntheticSource(SyntheticOptions{
		Width:      64,
		Height:     48,
		FrameCount: 5,
		SquareSize: 8,
		StepX:      4,
		Interval:   40 * time.Millisecond,
	})
	defer src.Close()

	var n int
	for {
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if f.Index != n {
			t.Errorf("frame %d has index %d", n, f.Index)
		}
		if want := time.Duration(n) * 40 * time.Millisecond; f.Timestamp != want {
			t.Errorf("frame %d timestamp = %v, want %v", n, f.Timestamp, want)
		}
		n++
	}
	if n != 5 {
		t.Fatalf("produced %d frames, want 5", n)
	}
	// A drained source stays at EOF.
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after EOF = %v, want io.EOF", err)
	}
}

func TestSyntheticSourceSquareMoves(t *testing.T) {
	src := NewSyntheticSource(SyntheticOptions{
		Width:      64,
		Height:     48,
		FrameCount: 3,
		SquareSize: 8,
		StepX:      4,
	})
	defer src.Close()

	first, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	second, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	r0 := src.SquareAt(0)
	r1 := src.SquareAt(1)
	if r1.Min.X != r0.Min.X+4 {
		t.Fatalf("square moved %d px, want 4", r1.Min.X-r0.Min.X)
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if got := first.Pixels.RGBAAt(r0.Min.X, r0.Min.Y); got != white {
		t.Errorf("frame 0 square corner = %v, want white", got)
	}
	if got := second.Pixels.RGBAAt(r1.Min.X, r1.Min.Y); got != white {
		t.Errorf("frame 1 square corner = %v, want white", got)
	}
	// The vacated corner is background again.
	if got := second.Pixels.RGBAAt(r0.Min.X, r0.Min.Y); got == white {
		t.Errorf("frame 1 still white at frame 0's corner")
	}
}

func TestSyntheticSourceClampsSquareToCanvas(t *testing.T) {
	src := NewSyntheticSource(SyntheticOptions{
		Width:      32,
		Height:     32,
		FrameCount: 100,
		SquareSize: 8,
		StepX:      16,
	})
	for i := 0; i < 100; i++ {
		r := src.SquareAt(i)
		if r.Min.X < 0 || r.Max.X > 32 || r.Min.Y < 0 || r.Max.Y > 32 {
			t.Fatalf("frame %d square %v escapes the canvas", i, r)
		}
	}
}

func TestSyntheticSourceDefaults(t *testing.T) {
	src := NewSyntheticSource(SyntheticOptions{})
	if src.FrameInterval() <= 0 {
		t.Error("default interval not positive")
	}
	f, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Bounds().Dx() == 0 || f.Bounds().Dy() == 0 {
		t.Errorf("default frame has empty bounds %v", f.Bounds())
	}
	if src.Orientation() != OrientationUp {
		t.Errorf("default orientation = %v", src.Orientation())
	}
}

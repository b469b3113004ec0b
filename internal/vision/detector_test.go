package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

func frameOf(img *image.RGBA) *video.Frame {
	return &video.Frame{Index: 0, Pixels: img}
}

func TestDetectRectanglesFindsSingleBlock(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	fillRect(img, image.Rect(48, 48, 80, 80), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	d := NewGradientDetector(config.EmptyTuningConfig())
	proposals, err := d.DetectRectangles(frameOf(img), video.OrientationUp)
	if err != nil {
		t.Fatalf("DetectRectangles: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(proposals))
	}
	if proposals[0].Confidence != 1.0 {
		t.Errorf("top confidence = %v, want 1.0", proposals[0].Confidence)
	}
	b := proposals[0].Quad.Bound()
	if !b.ContainsPoint(r2Pt(0.5, 0.5)) {
		t.Errorf("proposal %v does not contain the block center", b)
	}
}

func TestDetectRectanglesEmptyFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))

	d := NewGradientDetector(config.EmptyTuningConfig())
	proposals, err := d.DetectRectangles(frameOf(img), video.OrientationUp)
	if err != nil {
		t.Fatalf("DetectRectangles: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("got %d proposals on a uniform frame, want 0", len(proposals))
	}
}

func TestDetectRectanglesCapsResultCount(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for _, x := range []int{8, 40, 72, 104} {
		for _, y := range []int{8, 48, 88} {
			fillRect(img, image.Rect(x, y, x+16, y+16), white)
		}
	}

	d := NewGradientDetector(config.EmptyTuningConfig())
	proposals, err := d.DetectRectangles(frameOf(img), video.OrientationUp)
	if err != nil {
		t.Fatalf("DetectRectangles: %v", err)
	}
	if want := config.EmptyTuningConfig().GetDetectorMaxResults(); len(proposals) != want {
		t.Fatalf("got %d proposals from 12 blocks, want the cap of %d", len(proposals), want)
	}
}

func TestDetectRectanglesFiltersExtremeAspect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	fillRect(img, image.Rect(16, 57, 112, 71), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	d := NewGradientDetector(config.EmptyTuningConfig())
	proposals, err := d.DetectRectangles(frameOf(img), video.OrientationUp)
	if err != nil {
		t.Fatalf("DetectRectangles: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("got %d proposals for a thin stripe, want 0", len(proposals))
	}
}

func TestDetectRectanglesOrdersByConfidence(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	fillRect(img, image.Rect(16, 16, 48, 48), color.RGBA{R: 255, G: 255, B: 255, A: 255})
	fillRect(img, image.Rect(80, 80, 112, 112), color.RGBA{R: 64, G: 64, B: 64, A: 255})

	d := NewGradientDetector(config.EmptyTuningConfig())
	proposals, err := d.DetectRectangles(frameOf(img), video.OrientationUp)
	if err != nil {
		t.Fatalf("DetectRectangles: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(proposals))
	}
	if proposals[0].Confidence != 1.0 {
		t.Errorf("top confidence = %v, want 1.0", proposals[0].Confidence)
	}
	if proposals[1].Confidence >= proposals[0].Confidence {
		t.Errorf("confidences not descending: %v then %v", proposals[0].Confidence, proposals[1].Confidence)
	}
	// The bright block sits in the upper-left of the image, which is the
	// upper-left of normalized space too once y is flipped.
	if !proposals[0].Quad.Bound().ContainsPoint(r2Pt(0.25, 0.75)) {
		t.Errorf("top proposal %v does not contain the bright block center", proposals[0].Quad.Bound())
	}
	if !proposals[1].Quad.Bound().ContainsPoint(r2Pt(0.75, 0.25)) {
		t.Errorf("second proposal %v does not contain the dim block center", proposals[1].Quad.Bound())
	}
}

func TestDetectRectanglesRejectsMissingFrame(t *testing.T) {
	d := NewGradientDetector(config.EmptyTuningConfig())
	if _, err := d.DetectRectangles(nil, video.OrientationUp); err == nil {
		t.Error("DetectRectangles(nil) returned no error")
	}
	if _, err := d.DetectRectangles(&video.Frame{Index: 0}, video.OrientationUp); err == nil {
		t.Error("DetectRectangles with no pixels returned no error")
	}
}

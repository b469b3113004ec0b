package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var red = color.RGBA{R: 230, G: 59, B: 46, A: 255}

func testFrame(w, h int) *video.Frame {
	return &video.Frame{Index: 1, Pixels: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func snapshotAt(x, y, w, h float64, style track.Style) track.Snapshot {
	return track.Snapshot{
		ID:         track.NewRegionID(),
		Quad:       geom.QuadFromRect(geom.RectXYWH(x, y, w, h)),
		Style:      style,
		Color:      red,
		Confidence: 0.9,
	}
}

func TestRenderSolidOutline(t *testing.T) {
	r := &Renderer{Stroke: 2}
	out := r.Render(testFrame(100, 100), geom.IdentityAffine(), []track.Snapshot{
		snapshotAt(0.2, 0.2, 0.4, 0.4, track.StyleSolid),
	})
	if out == nil {
		t.Fatal("Render returned nil")
	}

	// The region covers pixels (20,40)-(60,80). The top edge rows are
	// fully painted for a solid outline.
	for _, x := range []int{20, 28, 40, 59} {
		if got := out.NRGBAAt(x, 40); got.R != red.R || got.G != red.G || got.B != red.B {
			t.Errorf("top edge pixel (%d,40) = %v, want region color", x, got)
		}
	}
	// The interior stays untouched.
	if got := out.NRGBAAt(40, 60); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("interior pixel = %v, want background", got)
	}
	// The source frame is not modified.
	f := testFrame(100, 100)
	r.Render(f, geom.IdentityAffine(), []track.Snapshot{snapshotAt(0.2, 0.2, 0.4, 0.4, track.StyleSolid)})
	if got := f.Pixels.RGBAAt(20, 40); got.R != 0 {
		t.Error("Render painted on the source frame")
	}
}

func TestRenderDashedOutlineHasGaps(t *testing.T) {
	r := &Renderer{Stroke: 1, DashOn: 8, DashOff: 6}
	out := r.Render(testFrame(100, 100), geom.IdentityAffine(), []track.Snapshot{
		snapshotAt(0.2, 0.2, 0.4, 0.4, track.StyleDashed),
	})

	// Dash phase runs from the edge start at x=20: pixels 20..27 are on,
	// 28..33 off, 34..41 on again.
	if got := out.NRGBAAt(20, 40); got.R != red.R {
		t.Errorf("dash start pixel = %v, want region color", got)
	}
	if got := out.NRGBAAt(28, 40); got.R != 0 {
		t.Errorf("gap pixel = %v, want background", got)
	}
	if got := out.NRGBAAt(34, 40); got.R != red.R {
		t.Errorf("second dash pixel = %v, want region color", got)
	}
}

func TestRenderAppliesDisplayRotation(t *testing.T) {
	r := &Renderer{Stroke: 2, ApplyDisplay: true}
	display := video.OrientationLeft.DisplayTransform()
	out := r.Render(testFrame(100, 50), display, []track.Snapshot{
		snapshotAt(0.8, 0.0, 0.2, 0.2, track.StyleSolid),
	})

	if got := out.Bounds(); got.Dx() != 50 || got.Dy() != 100 {
		t.Fatalf("rotated canvas = %v, want 50x100", got)
	}
	// The region sat at the frame's bottom-right. One counterclockwise
	// quarter turn puts it at the display's top-right, pixels (40,0)-(50,20).
	if got := out.NRGBAAt(45, 0); got.R != red.R {
		t.Errorf("rotated top edge pixel = %v, want region color", got)
	}
}

func TestRenderNilFrame(t *testing.T) {
	r := &Renderer{}
	if out := r.Render(nil, geom.IdentityAffine(), nil); out != nil {
		t.Error("Render(nil) should return nil")
	}
	if out := r.Render(&video.Frame{Index: 3}, geom.IdentityAffine(), nil); out != nil {
		t.Error("Render of a pixel-less frame should return nil")
	}
}

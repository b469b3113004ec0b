package video

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
)

func pt(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

func TestOrientationString(t *testing.T) {
	cases := []struct {
		o    Orientation
		want string
	}{
		{OrientationUp, "up"},
		{OrientationLeft, "left"},
		{OrientationDown, "down"},
		{OrientationRight, "right"},
	}
	for _, c := range cases {
		if got := c.o.String(); got != c.want {
			t.Errorf("Orientation(%d).String() = %q, want %q", int(c.o), got, c.want)
		}
	}
}

func TestOrientationDisplayTransform(t *testing.T) {
	// A quarter turn left maps the frame's x axis onto the display's y
	// axis: the point (1,0) lands at (1,1) in the unit square.
	got := OrientationLeft.DisplayTransform().Apply(pt(1, 0))
	if got.X != 1 || got.Y != 1 {
		t.Errorf("left transform of (1,0) = %v, want (1,1)", got)
	}
	if !OrientationUp.DisplayTransform().IsIdentity() {
		t.Error("upright orientation should map through the identity")
	}
}

func TestFrameBoundsNilSafety(t *testing.T) {
	var f *Frame
	if got := f.Bounds(); got != (image.Rectangle{}) {
		t.Errorf("nil frame bounds = %v, want zero", got)
	}
	if got := (&Frame{}).Bounds(); got != (image.Rectangle{}) {
		t.Errorf("pixel-less frame bounds = %v, want zero", got)
	}
}

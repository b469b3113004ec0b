package geom

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
)

const tolerance = 1e-9

func pointNear(a, b r2.Point) bool {
	return math.Abs(a.X-b.X) < tolerance && math.Abs(a.Y-b.Y) < tolerance
}

func TestRectXYWH(t *testing.T) {
	r := RectXYWH(0.1, 0.2, 0.3, 0.4)
	if math.Abs(r.X.Lo-0.1) > tolerance || math.Abs(r.X.Hi-0.4) > tolerance {
		t.Errorf("X interval = [%f, %f], want [0.1, 0.4]", r.X.Lo, r.X.Hi)
	}
	if math.Abs(r.Y.Lo-0.2) > tolerance || math.Abs(r.Y.Hi-0.6) > tolerance {
		t.Errorf("Y interval = [%f, %f], want [0.2, 0.6]", r.Y.Lo, r.Y.Hi)
	}
}

func TestRectIsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		rect r2.Rect
		want bool
	}{
		{"normal box", RectXYWH(0, 0, 0.2, 0.2), false},
		{"zero width", RectXYWH(0.5, 0.5, 0, 0.2), true},
		{"zero height", RectXYWH(0.5, 0.5, 0.2, 0), true},
		{"zero size", RectXYWH(0.5, 0.5, 0, 0), true},
		{"full frame", RectXYWH(0, 0, 1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RectIsDegenerate(tt.rect); got != tt.want {
				t.Errorf("RectIsDegenerate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageRectFlipsVertically(t *testing.T) {
	// A box in the lower-left quadrant of normalized space lands in the
	// lower-left of the image, which is large y in pixel space.
	got := ImageRect(RectXYWH(0, 0, 0.5, 0.5), 100, 100)
	want := image.Rect(0, 50, 50, 100)
	if got != want {
		t.Errorf("ImageRect = %v, want %v", got, want)
	}
}

func TestImageRectNormRectRoundTrip(t *testing.T) {
	orig := RectXYWH(0.25, 0.5, 0.25, 0.25)
	px := ImageRect(orig, 100, 100)
	back := NormRect(px, 100, 100)
	if math.Abs(back.X.Lo-orig.X.Lo) > tolerance || math.Abs(back.X.Hi-orig.X.Hi) > tolerance ||
		math.Abs(back.Y.Lo-orig.Y.Lo) > tolerance || math.Abs(back.Y.Hi-orig.Y.Hi) > tolerance {
		t.Errorf("round trip = %+v, want %+v", back, orig)
	}
}

func TestImagePoint(t *testing.T) {
	tests := []struct {
		name string
		p    r2.Point
		want image.Point
	}{
		{"center", r2.Point{X: 0.5, Y: 0.5}, image.Point{X: 50, Y: 50}},
		{"origin is bottom left", r2.Point{X: 0, Y: 0}, image.Point{X: 0, Y: 100}},
		{"top right", r2.Point{X: 1, Y: 1}, image.Point{X: 100, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImagePoint(tt.p, 100, 100); got != tt.want {
				t.Errorf("ImagePoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		rect r2.Rect
		want float64
	}{
		{"square", RectXYWH(0, 0, 0.3, 0.3), 1.0},
		{"wide", RectXYWH(0, 0, 0.4, 0.2), 0.5},
		{"tall", RectXYWH(0, 0, 0.1, 0.5), 0.2},
		{"degenerate", RectXYWH(0, 0, 0, 0.5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AspectRatio(tt.rect); math.Abs(got-tt.want) > tolerance {
				t.Errorf("AspectRatio = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestQuadFromRect(t *testing.T) {
	q := QuadFromRect(RectXYWH(0.1, 0.2, 0.2, 0.3))
	if !pointNear(q.BottomLeft, r2.Point{X: 0.1, Y: 0.2}) {
		t.Errorf("BottomLeft = %v", q.BottomLeft)
	}
	if !pointNear(q.BottomRight, r2.Point{X: 0.3, Y: 0.2}) {
		t.Errorf("BottomRight = %v", q.BottomRight)
	}
	if !pointNear(q.TopRight, r2.Point{X: 0.3, Y: 0.5}) {
		t.Errorf("TopRight = %v", q.TopRight)
	}
	if !pointNear(q.TopLeft, r2.Point{X: 0.1, Y: 0.5}) {
		t.Errorf("TopLeft = %v", q.TopLeft)
	}
}

func TestQuadCenterAndTranslate(t *testing.T) {
	q := QuadFromRect(RectXYWH(0.2, 0.2, 0.2, 0.2))
	if c := q.Center(); !pointNear(c, r2.Point{X: 0.3, Y: 0.3}) {
		t.Errorf("Center = %v, want (0.3, 0.3)", c)
	}

	moved := q.Translate(r2.Point{X: 0.1, Y: -0.1})
	if c := moved.Center(); !pointNear(c, r2.Point{X: 0.4, Y: 0.2}) {
		t.Errorf("translated Center = %v, want (0.4, 0.2)", c)
	}
	// The original is unchanged.
	if c := q.Center(); !pointNear(c, r2.Point{X: 0.3, Y: 0.3}) {
		t.Errorf("original mutated, Center = %v", c)
	}
}

func TestQuadIsDegenerate(t *testing.T) {
	if QuadFromRect(RectXYWH(0, 0, 0.2, 0.2)).IsDegenerate() {
		t.Error("normal quad reported degenerate")
	}
	if !QuadFromRect(RectXYWH(0.5, 0.5, 0, 0)).IsDegenerate() {
		t.Error("point quad not reported degenerate")
	}
}

func TestAffineApply(t *testing.T) {
	tests := []struct {
		name string
		a    Affine
		p    r2.Point
		want r2.Point
	}{
		{"identity", IdentityAffine(), r2.Point{X: 0.3, Y: 0.7}, r2.Point{X: 0.3, Y: 0.7}},
		{"translation", Translation(0.1, 0.2), r2.Point{X: 0.3, Y: 0.3}, r2.Point{X: 0.4, Y: 0.5}},
		{"scaling", Scaling(2, 0.5), r2.Point{X: 0.4, Y: 0.4}, r2.Point{X: 0.8, Y: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Apply(tt.p); !pointNear(got, tt.want) {
				t.Errorf("Apply(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestAffineCompose(t *testing.T) {
	// Scale first, then translate.
	a := Translation(1, 0).Compose(Scaling(2, 2))
	got := a.Apply(r2.Point{X: 1, Y: 1})
	if !pointNear(got, r2.Point{X: 3, Y: 2}) {
		t.Errorf("composed Apply = %v, want (3, 2)", got)
	}
}

func TestUnitRotation(t *testing.T) {
	tests := []struct {
		name  string
		turns int
		p     r2.Point
		want  r2.Point
	}{
		{"zero turns", 0, r2.Point{X: 0.2, Y: 0.3}, r2.Point{X: 0.2, Y: 0.3}},
		{"quarter turn moves bottom right to top right", 1, r2.Point{X: 1, Y: 0}, r2.Point{X: 1, Y: 1}},
		{"half turn", 2, r2.Point{X: 0.2, Y: 0.3}, r2.Point{X: 0.8, Y: 0.7}},
		{"three quarters", 3, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 0}},
		{"four turns is identity", 4, r2.Point{X: 0.9, Y: 0.1}, r2.Point{X: 0.9, Y: 0.1}},
		{"negative turns wrap", -1, r2.Point{X: 1, Y: 0}, r2.Point{X: 0, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnitRotation(tt.turns).Apply(tt.p); !pointNear(got, tt.want) {
				t.Errorf("UnitRotation(%d).Apply(%v) = %v, want %v", tt.turns, tt.p, got, tt.want)
			}
		})
	}
}

func TestUnitRotationRoundTrip(t *testing.T) {
	p := r2.Point{X: 0.25, Y: 0.6}
	got := UnitRotation(3).Apply(UnitRotation(1).Apply(p))
	if !pointNear(got, p) {
		t.Errorf("rotate then unrotate = %v, want %v", got, p)
	}
}

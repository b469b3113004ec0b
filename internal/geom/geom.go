// Package geom provides normalized image-plane geometry for region
// tracking. All coordinates live in the unit square with the origin at
// the lower left and x, y in [0,1]; conversions to pixel space flip the
// vertical axis.
package geom

import (
	"image"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// RectXYWH builds an axis-aligned normalized rectangle from its
// lower-left corner and extent.
func RectXYWH(x, y, w, h float64) r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: x, Hi: x + w},
		Y: r1.Interval{Lo: y, Hi: y + h},
	}
}

// RectIsDegenerate reports whether the rectangle has zero (or negative)
// width or height.
func RectIsDegenerate(r r2.Rect) bool {
	return r.X.Length() <= 0 || r.Y.Length() <= 0
}

// ImageRect maps a normalized rectangle to pixel coordinates in an
// image of the given dimensions. Normalized y grows upward while image
// y grows downward.
func ImageRect(r r2.Rect, width, height int) image.Rectangle {
	x0 := int(math.Round(r.X.Lo * float64(width)))
	x1 := int(math.Round(r.X.Hi * float64(width)))
	y0 := int(math.Round((1 - r.Y.Hi) * float64(height)))
	y1 := int(math.Round((1 - r.Y.Lo) * float64(height)))
	return image.Rect(x0, y0, x1, y1)
}

// NormRect maps a pixel rectangle back to normalized coordinates. It is
// the inverse of ImageRect up to rounding.
func NormRect(r image.Rectangle, width, height int) r2.Rect {
	w := float64(width)
	h := float64(height)
	return r2.Rect{
		X: r1.Interval{Lo: float64(r.Min.X) / w, Hi: float64(r.Max.X) / w},
		Y: r1.Interval{Lo: 1 - float64(r.Max.Y)/h, Hi: 1 - float64(r.Min.Y)/h},
	}
}

// ImagePoint maps a normalized point to pixel coordinates.
func ImagePoint(p r2.Point, width, height int) image.Point {
	return image.Point{
		X: int(math.Round(p.X * float64(width))),
		Y: int(math.Round((1 - p.Y) * float64(height))),
	}
}

// AspectRatio returns the rectangle's short side divided by its long
// side, in (0,1] for non-degenerate rectangles.
func AspectRatio(r r2.Rect) float64 {
	w := r.X.Length()
	h := r.Y.Length()
	if w <= 0 || h <= 0 {
		return 0
	}
	if w > h {
		return h / w
	}
	return w / h
}

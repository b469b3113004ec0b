package geom

import (
	"github.com/golang/geo/r2"
)

// Quad is a quadrilateral described by its four corners in normalized
// unit-square coordinates. Corner order matches r2.Rect.Vertices:
// counterclockwise starting at the lower left.
type Quad struct {
	BottomLeft  r2.Point `json:"bottomLeft"`
	BottomRight r2.Point `json:"bottomRight"`
	TopRight    r2.Point `json:"topRight"`
	TopLeft     r2.Point `json:"topLeft"`
}

// QuadFromRect converts an axis-aligned rectangle to its four corners.
func QuadFromRect(r r2.Rect) Quad {
	v := r.Vertices()
	return Quad{BottomLeft: v[0], BottomRight: v[1], TopRight: v[2], TopLeft: v[3]}
}

// Corners returns the corners in counterclockwise order starting at the
// lower left.
func (q Quad) Corners() [4]r2.Point {
	return [4]r2.Point{q.BottomLeft, q.BottomRight, q.TopRight, q.TopLeft}
}

// Bound returns the axis-aligned bounding rectangle of the quad.
func (q Quad) Bound() r2.Rect {
	return r2.RectFromPoints(q.BottomLeft, q.BottomRight, q.TopRight, q.TopLeft)
}

// Center returns the mean of the four corners.
func (q Quad) Center() r2.Point {
	sum := q.BottomLeft.Add(q.BottomRight).Add(q.TopRight).Add(q.TopLeft)
	return r2.Point{X: sum.X / 4, Y: sum.Y / 4}
}

// Translate returns the quad moved by the given offset.
func (q Quad) Translate(d r2.Point) Quad {
	return Quad{
		BottomLeft:  q.BottomLeft.Add(d),
		BottomRight: q.BottomRight.Add(d),
		TopRight:    q.TopRight.Add(d),
		TopLeft:     q.TopLeft.Add(d),
	}
}

// Transform maps all four corners through the affine transform.
func (q Quad) Transform(a Affine) Quad {
	return Quad{
		BottomLeft:  a.Apply(q.BottomLeft),
		BottomRight: a.Apply(q.BottomRight),
		TopRight:    a.Apply(q.TopRight),
		TopLeft:     a.Apply(q.TopLeft),
	}
}

// IsDegenerate reports whether the quad's bounding box has zero width
// or height.
func (q Quad) IsDegenerate() bool {
	return RectIsDegenerate(q.Bound())
}

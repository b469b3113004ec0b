// Package render turns session output into viewable artifacts: frames
// with region outlines drawn on them, an in-memory preview buffer for
// streaming, and a frame dumper for writing sequences to disk.
package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// Renderer draws region outlines onto frame copies. Solid-style regions
// get continuous outlines, dashed-style regions a dash pattern, each in
// the region's assigned color.
type Renderer struct {
	// Stroke is the outline width in pixels. Zero picks a width
	// proportional to the frame size.
	Stroke int
	// DashOn and DashOff are the dash pattern segment lengths in
	// pixels. Zero values fall back to 8 on, 6 off.
	DashOn, DashOff int
	// ApplyDisplay rotates the output canvas by the frame's display
	// transform, so the result is upright for viewing.
	ApplyDisplay bool
}

// Render returns a copy of the frame with the given snapshots outlined.
// A nil or pixel-less frame yields nil.
func (r *Renderer) Render(frame *video.Frame, display geom.Affine, regions []track.Snapshot) *image.NRGBA {
	if frame == nil || frame.Pixels == nil {
		return nil
	}
	canvas := imaging.Clone(frame.Pixels)
	transform := geom.IdentityAffine()
	if r.ApplyDisplay {
		if turns, ok := geom.UnitRotationTurns(display); ok {
			switch turns {
			case 1:
				canvas = imaging.Rotate90(canvas)
			case 2:
				canvas = imaging.Rotate180(canvas)
			case 3:
				canvas = imaging.Rotate270(canvas)
			}
			transform = display
		}
	}
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()

	stroke := r.Stroke
	if stroke <= 0 {
		stroke = max(2, min(w, h)/250)
	}
	dashOn, dashOff := r.DashOn, r.DashOff
	if dashOn <= 0 {
		dashOn = 8
	}
	if dashOff <= 0 {
		dashOff = 6
	}

	for _, snap := range regions {
		quad := snap.Quad
		if transform != geom.IdentityAffine() {
			quad = quad.Transform(transform)
		}
		rect := geom.ImageRect(quad.Bound(), w, h)
		var on, off int
		if snap.Style == track.StyleDashed {
			on, off = dashOn, dashOff
		}
		drawOutline(canvas, rect, snap.Color, stroke, on, off)
	}
	return canvas
}

// drawOutline traces the rectangle's four edges. A zero dash-on length
// draws solid lines.
func drawOutline(img *image.NRGBA, rect image.Rectangle, c color.RGBA, stroke, dashOn, dashOff int) {
	x0, y0 := rect.Min.X, rect.Min.Y
	x1, y1 := rect.Max.X, rect.Max.Y
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c, dashOn, dashOff)
		drawHLine(img, y1-1-s, x0, x1, c, dashOn, dashOff)
		drawVLine(img, x0+s, y0, y1, c, dashOn, dashOff)
		drawVLine(img, x1-1-s, y0, y1, c, dashOn, dashOff)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.RGBA, dashOn, dashOff int) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	start := x0
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		if penDown(x-start, dashOn, dashOff) {
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.RGBA, dashOn, dashOff int) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	start := y0
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		if penDown(y-start, dashOn, dashOff) {
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
		i += img.Stride
	}
}

// penDown reports whether position t along a line falls on a dash. A
// zero dashOn means the line is solid.
func penDown(t, dashOn, dashOff int) bool {
	if dashOn <= 0 {
		return true
	}
	return t%(dashOn+dashOff) < dashOn
}

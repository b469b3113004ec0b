package vision

import (
	"image"
	"math"
)

// grayPlane holds a luminance image together with its integral images,
// so any rectangular window's sum and variance cost O(1) to evaluate.
type grayPlane struct {
	w, h  int
	gray  []float64 // luminance in [0,1], row-major
	sum   []float64 // integral of gray
	sumSq []float64 // integral of gray squared
}

func newGrayPlane(img image.Image) *grayPlane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := &grayPlane{
		w:     w,
		h:     h,
		gray:  make([]float64, w*h),
		sum:   make([]float64, w*h),
		sumSq: make([]float64, w*h),
	}
	for y := 0; y < h; y++ {
		var rowSum, rowSumSq float64
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bl)) / 65535.0
			i := y*w + x
			p.gray[i] = lum
			rowSum += lum
			rowSumSq += lum * lum
			if y == 0 {
				p.sum[i] = rowSum
				p.sumSq[i] = rowSumSq
			} else {
				p.sum[i] = rowSum + p.sum[i-w]
				p.sumSq[i] = rowSumSq + p.sumSq[i-w]
			}
		}
	}
	return p
}

// windowSum returns the sum of gray values over the inclusive pixel
// rectangle [x0,x1]x[y0,y1], and windowSumSq the sum of squares.
func (p *grayPlane) windowSum(x0, y0, x1, y1 int) float64 {
	return p.rectSum(p.sum, x0, y0, x1, y1)
}

func (p *grayPlane) windowSumSq(x0, y0, x1, y1 int) float64 {
	return p.rectSum(p.sumSq, x0, y0, x1, y1)
}

func (p *grayPlane) rectSum(integral []float64, x0, y0, x1, y1 int) float64 {
	at := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return integral[y*p.w+x]
	}
	return at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
}

// template is a luminance patch captured from a plane, with the
// statistics needed for normalized cross-correlation.
type template struct {
	w, h  int
	scale int // downscale factor of the plane it was captured from
	gray  []float64
	mean  float64
	std   float64
}

// captureTemplate copies the patch at r out of the plane. It returns
// nil when r falls outside the plane or the patch has no contrast,
// since a flat template cannot be correlated.
func captureTemplate(p *grayPlane, r image.Rectangle, scale int) *template {
	r = r.Intersect(image.Rect(0, 0, p.w, p.h))
	if r.Dx() < 2 || r.Dy() < 2 {
		return nil
	}
	t := &template{
		w:     r.Dx(),
		h:     r.Dy(),
		scale: scale,
		gray:  make([]float64, r.Dx()*r.Dy()),
	}
	var sum, sumSq float64
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			v := p.gray[(r.Min.Y+y)*p.w+(r.Min.X+x)]
			t.gray[y*t.w+x] = v
			sum += v
			sumSq += v * v
		}
	}
	n := float64(t.w * t.h)
	t.mean = sum / n
	variance := sumSq/n - t.mean*t.mean
	if variance <= 1e-9 {
		return nil
	}
	t.std = math.Sqrt(variance)
	return t
}

// matchTemplate slides t over every position inside search and returns
// the top-left corner and score of the best normalized cross-correlation.
// Scores lie in [-1,1]. ok is false when no position fits the window.
func matchTemplate(p *grayPlane, t *template, search image.Rectangle) (best image.Point, score float64, ok bool) {
	search = search.Intersect(image.Rect(0, 0, p.w, p.h))
	maxX := search.Max.X - t.w
	maxY := search.Max.Y - t.h
	if maxX < search.Min.X || maxY < search.Min.Y {
		return image.Point{}, 0, false
	}
	n := float64(t.w * t.h)
	score = math.Inf(-1)
	for y := search.Min.Y; y <= maxY; y++ {
		for x := search.Min.X; x <= maxX; x++ {
			sumF := p.windowSum(x, y, x+t.w-1, y+t.h-1)
			sumSqF := p.windowSumSq(x, y, x+t.w-1, y+t.h-1)
			meanF := sumF / n
			varF := sumSqF/n - meanF*meanF
			if varF <= 1e-9 {
				continue
			}
			var sumFT float64
			for ty := 0; ty < t.h; ty++ {
				row := (y+ty)*p.w + x
				trow := ty * t.w
				for tx := 0; tx < t.w; tx++ {
					sumFT += p.gray[row+tx] * t.gray[trow+tx]
				}
			}
			s := (sumFT - n*meanF*t.mean) / (n * math.Sqrt(varF) * t.std)
			if s > score {
				score = s
				best = image.Point{X: x, Y: y}
				ok = true
			}
		}
	}
	return best, score, ok
}

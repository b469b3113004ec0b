package vision

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"
)

func patternImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*7 + y*13) % 251)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func TestWindowSumMatchesBruteForce(t *testing.T) {
	p := newGrayPlane(patternImage(17, 11))
	windows := []image.Rectangle{
		image.Rect(0, 0, 1, 1),
		image.Rect(0, 0, 17, 11),
		image.Rect(3, 2, 9, 7),
		image.Rect(16, 10, 17, 11),
	}
	for _, w := range windows {
		var want, wantSq float64
		for y := w.Min.Y; y < w.Max.Y; y++ {
			for x := w.Min.X; x < w.Max.X; x++ {
				v := p.gray[y*p.w+x]
				want += v
				wantSq += v * v
			}
		}
		got := p.windowSum(w.Min.X, w.Min.Y, w.Max.X-1, w.Max.Y-1)
		gotSq := p.windowSumSq(w.Min.X, w.Min.Y, w.Max.X-1, w.Max.Y-1)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("windowSum(%v) = %v, want %v", w, got, want)
		}
		if math.Abs(gotSq-wantSq) > 1e-9 {
			t.Errorf("windowSumSq(%v) = %v, want %v", w, gotSq, wantSq)
		}
	}
}

func TestCaptureTemplateRejectsFlatPatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	fillRect(img, img.Bounds(), color.RGBA{R: 128, G: 128, B: 128, A: 255})
	p := newGrayPlane(img)
	if tpl := captureTemplate(p, image.Rect(4, 4, 20, 20), 1); tpl != nil {
		t.Fatalf("captureTemplate on flat patch = %+v, want nil", tpl)
	}
}

func TestCaptureTemplateRejectsOutOfBounds(t *testing.T) {
	p := newGrayPlane(patternImage(16, 16))
	if tpl := captureTemplate(p, image.Rect(15, 15, 30, 30), 1); tpl != nil && (tpl.w > 1 || tpl.h > 1) {
		t.Fatalf("captureTemplate clipped patch has size %dx%d", tpl.w, tpl.h)
	}
}

func TestMatchTemplateRecoversShift(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	first := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fillRect(first, image.Rect(16, 16, 32, 32), white)
	p1 := newGrayPlane(first)
	tpl := captureTemplate(p1, image.Rect(12, 12, 36, 36), 1)
	if tpl == nil {
		t.Fatal("captureTemplate returned nil for textured patch")
	}

	second := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fillRect(second, image.Rect(21, 19, 37, 35), white)
	p2 := newGrayPlane(second)
	best, score, ok := matchTemplate(p2, tpl, image.Rect(0, 0, 64, 64))
	if !ok {
		t.Fatal("matchTemplate found no candidate")
	}
	if want := image.Pt(17, 15); best != want {
		t.Errorf("best position = %v, want %v", best, want)
	}
	if score < 0.99 {
		t.Errorf("score = %v, want >= 0.99 for an exact copy", score)
	}
}

func TestMatchTemplateRejectsTooSmallSearchWindow(t *testing.T) {
	p := newGrayPlane(patternImage(64, 64))
	tpl := captureTemplate(p, image.Rect(10, 10, 30, 30), 1)
	if tpl == nil {
		t.Fatal("captureTemplate returned nil for textured patch")
	}
	if _, _, ok := matchTemplate(p, tpl, image.Rect(0, 0, 10, 10)); ok {
		t.Error("matchTemplate reported a hit inside a window smaller than the template")
	}
}

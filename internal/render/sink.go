package render

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var (
	_ track.Observer = (*PreviewBuffer)(nil)
	_ track.Observer = (*FrameDumper)(nil)
)

// PreviewBuffer keeps the most recent frame as an encoded JPEG so HTTP
// handlers can serve a live preview without touching the session.
type PreviewBuffer struct {
	renderer *Renderer
	quality  int

	mu   sync.RWMutex
	data []byte
	seq  uint64
	done bool
}

func NewPreviewBuffer(renderer *Renderer, quality int) *PreviewBuffer {
	if renderer == nil {
		renderer = &Renderer{}
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &PreviewBuffer{renderer: renderer, quality: quality}
}

func (p *PreviewBuffer) OnFrame(frame *video.Frame, display geom.Affine, updated []track.Snapshot) {
	img := p.renderer.Render(frame, display, updated)
	if img == nil {
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return
	}
	p.mu.Lock()
	p.data = buf.Bytes()
	p.seq++
	p.mu.Unlock()
}

func (p *PreviewBuffer) OnProgress(int) {}

func (p *PreviewBuffer) OnFinished() {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
}

// Latest returns the newest encoded frame and its sequence number. The
// sequence starts at 1 for the first frame; 0 means nothing rendered
// yet.
func (p *PreviewBuffer) Latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data, p.seq
}

// Done reports whether the producing session has finished.
func (p *PreviewBuffer) Done() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done
}

// FrameDumper writes each rendered frame to a directory as a numbered
// image file. The format follows the configured extension.
type FrameDumper struct {
	renderer *Renderer
	dir      string
	ext      string
	quality  int

	mu  sync.Mutex
	err error
}

// NewFrameDumper writes frames into dir with the given extension
// ("jpg", "png", or "webp"). The directory is created if needed.
func NewFrameDumper(renderer *Renderer, dir, ext string, quality int) (*FrameDumper, error) {
	if renderer == nil {
		renderer = &Renderer{}
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	switch ext {
	case "":
		ext = "jpg"
	case "jpg", "jpeg", "png", "webp":
	default:
		return nil, fmt.Errorf("unsupported dump format %q", ext)
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump directory: %v", err)
	}
	return &FrameDumper{renderer: renderer, dir: dir, ext: ext, quality: quality}, nil
}

func (d *FrameDumper) OnFrame(frame *video.Frame, display geom.Affine, updated []track.Snapshot) {
	img := d.renderer.Render(frame, display, updated)
	if img == nil {
		return
	}
	path := filepath.Join(d.dir, fmt.Sprintf("frame_%06d.%s", frame.Index, d.ext))
	if err := saveImage(img, path, d.quality); err != nil {
		d.mu.Lock()
		if d.err == nil {
			d.err = err
		}
		d.mu.Unlock()
	}
}

func (d *FrameDumper) OnProgress(int) {}

func (d *FrameDumper) OnFinished() {}

// Err returns the first write failure, if any.
func (d *FrameDumper) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// saveImage writes img to path, picking the codec from the extension.
func saveImage(img image.Image, path string, quality int) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	case ".png":
		return imaging.Save(img, path)
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

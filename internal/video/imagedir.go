package video

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/keyframe-systems/regiontrack/internal/geom"

	// Register decoders for the formats a frame directory may contain.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageDirOptions configures a directory-backed source.
type ImageDirOptions struct {
	Dir         string
	Interval    time.Duration
	Orientation Orientation
}

// ImageDirSource replays the image files of a directory as a frame
// sequence, in lexical filename order. All frames are scaled to the
// dimensions of the first image so the stream has uniform geometry.
type ImageDirSource struct {
	opts  ImageDirOptions
	files []string
	next  int
	w, h  int
}

var _ Source = (*ImageDirSource)(nil)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// NewImageDirSource scans dir for image files. It fails when the
// directory cannot be read or contains no decodable images.
func NewImageDirSource(opts ImageDirOptions) (*ImageDirSource, error) {
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %v", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(opts.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", opts.Dir)
	}
	sort.Strings(files)
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 30
	}
	return &ImageDirSource{opts: opts, files: files}, nil
}

func (s *ImageDirSource) Next() (*Frame, error) {
	if s.next >= len(s.files) {
		return nil, io.EOF
	}
	path := s.files[s.next]
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v", filepath.Base(path), err)
	}
	if s.w == 0 {
		s.w, s.h = img.Bounds().Dx(), img.Bounds().Dy()
	} else if img.Bounds().Dx() != s.w || img.Bounds().Dy() != s.h {
		img = imaging.Resize(img, s.w, s.h, imaging.Lanczos)
	}
	f := &Frame{
		Index:     s.next,
		Pixels:    toRGBA(img),
		Timestamp: time.Duration(s.next) * s.opts.Interval,
	}
	s.next++
	return f, nil
}

func (s *ImageDirSource) Orientation() Orientation { return s.opts.Orientation }

func (s *ImageDirSource) DisplayTransform() geom.Affine {
	return s.opts.Orientation.DisplayTransform()
}

func (s *ImageDirSource) FrameInterval() time.Duration { return s.opts.Interval }

func (s *ImageDirSource) Close() error { return nil }

// FrameCount reports how many files the source will replay.
func (s *ImageDirSource) FrameCount() int { return len(s.files) }

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

package api

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/security"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// SourceSpec is the client-supplied description of a frame source.
type SourceSpec struct {
	// Type is one of "imagedir", "ffmpeg", "synthetic".
	Type string `json:"type"`
	// Path is the image directory or ffmpeg input (file path or
	// stream URL) depending on Type.
	Path        string  `json:"path,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	FrameRate   float64 `json:"frame_rate,omitempty"`
	FrameCount  int     `json:"frame_count,omitempty"`
	Orientation int     `json:"orientation,omitempty"`
}

// buildSource turns a client source spec into a source constructor.
// Local paths are only accepted when a media root is configured, and
// must resolve inside it.
func buildSource(spec SourceSpec, mediaRoot, ffmpegPath string) (func() (video.Source, error), error) {
	if spec.Orientation < 0 || spec.Orientation > 3 {
		return nil, fmt.Errorf("orientation must be 0-3 quarter turns, got %d", spec.Orientation)
	}
	orientation := video.Orientation(spec.Orientation)

	switch spec.Type {
	case "synthetic":
		opts := video.SyntheticOptions{
			Width:       spec.Width,
			Height:      spec.Height,
			FrameCount:  spec.FrameCount,
			Orientation: orientation,
		}
		if spec.FrameRate > 0 {
			opts.Interval = time.Duration(float64(time.Second) / spec.FrameRate)
		}
		return func() (video.Source, error) {
			return video.NewSyntheticSource(opts), nil
		}, nil

	case "imagedir":
		dir, err := resolveMediaPath(spec.Path, mediaRoot)
		if err != nil {
			return nil, err
		}
		opts := video.ImageDirOptions{Dir: dir, Orientation: orientation}
		if spec.FrameRate > 0 {
			opts.Interval = time.Duration(float64(time.Second) / spec.FrameRate)
		}
		return func() (video.Source, error) {
			return video.NewImageDirSource(opts)
		}, nil

	case "ffmpeg":
		if spec.Width <= 0 || spec.Height <= 0 {
			return nil, fmt.Errorf("ffmpeg source requires width and height")
		}
		input := spec.Path
		if input == "" {
			return nil, fmt.Errorf("ffmpeg source requires a path")
		}
		// Stream URLs pass through; local paths are confined to the
		// media root.
		if !strings.Contains(input, "://") {
			resolved, err := resolveMediaPath(input, mediaRoot)
			if err != nil {
				return nil, err
			}
			input = resolved
		}
		opts := video.FFmpegOptions{
			FFmpegPath:  ffmpegPath,
			Input:       input,
			Width:       spec.Width,
			Height:      spec.Height,
			FrameRate:   spec.FrameRate,
			Orientation: orientation,
		}
		return func() (video.Source, error) {
			return video.NewFFmpegSource(opts)
		}, nil

	default:
		return nil, fmt.Errorf("unknown source type %q", spec.Type)
	}
}

// resolveMediaPath anchors a client-supplied path under the media root
// and rejects anything that escapes it.
func resolveMediaPath(path, mediaRoot string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("source path is required")
	}
	if mediaRoot == "" {
		return "", fmt.Errorf("no media root configured, local source paths are not accepted")
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(mediaRoot, candidate)
	}
	if err := security.ValidatePathWithinDirectory(candidate, mediaRoot); err != nil {
		return "", fmt.Errorf("source path rejected: %w", err)
	}
	return candidate, nil
}

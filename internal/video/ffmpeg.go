package video

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/geom"
)

// FFmpegOptions configures a source that decodes any container or
// stream ffmpeg can open into raw RGBA frames on a pipe.
type FFmpegOptions struct {
	// FFmpegPath is the binary to execute, "ffmpeg" when empty.
	FFmpegPath string
	// Input is the file, device, or URL handed to ffmpeg -i.
	Input string
	// Width and Height select the decoded frame size. The source scales
	// the input to these dimensions.
	Width, Height int
	// FrameRate resamples the input to a fixed rate, 30 when zero.
	FrameRate   float64
	Orientation Orientation
}

// FFmpegSource shells out to ffmpeg and reads decoded frames from its
// stdout. One Read of width*height*4 bytes is one frame.
type FFmpegSource struct {
	opts   FFmpegOptions
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	next   int
	closed bool
}

var _ Source = (*FFmpegSource)(nil)

func NewFFmpegSource(opts FFmpegOptions) (*FFmpegSource, error) {
	if opts.Input == "" {
		return nil, fmt.Errorf("no input path for ffmpeg source")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("ffmpeg source needs explicit frame dimensions, got %dx%d", opts.Width, opts.Height)
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", opts.Input,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.FormatFloat(opts.FrameRate, 'f', -1, 64),
		"-",
	}
	cmd := exec.Command(opts.FFmpegPath, args...)

	s := &FFmpegSource{opts: opts, cmd: cmd}
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %v", err)
	}
	s.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %v", opts.FFmpegPath, err)
	}
	return s, nil
}

func (s *FFmpegSource) Next() (*Frame, error) {
	if s.closed {
		return nil, io.EOF
	}
	buf := make([]byte, s.opts.Width*s.opts.Height*4)
	if _, err := io.ReadFull(s.stdout, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Stream ended. Distinguish a clean end from a decoder
			// failure by the exit status.
			if werr := s.wait(); werr != nil {
				return nil, werr
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame from ffmpeg: %v", err)
	}
	f := &Frame{
		Index: s.next,
		Pixels: &image.RGBA{
			Pix:    buf,
			Stride: 4 * s.opts.Width,
			Rect:   image.Rect(0, 0, s.opts.Width, s.opts.Height),
		},
		Timestamp: time.Duration(float64(s.next) / s.opts.FrameRate * float64(time.Second)),
	}
	s.next++
	return f, nil
}

func (s *FFmpegSource) Orientation() Orientation { return s.opts.Orientation }

func (s *FFmpegSource) DisplayTransform() geom.Affine {
	return s.opts.Orientation.DisplayTransform()
}

func (s *FFmpegSource) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.opts.FrameRate)
}

// Close terminates the decoder process. Safe to call more than once.
func (s *FFmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return nil
}

// wait collects the decoder's exit status after its output ended and
// folds any stderr output into the error.
func (s *FFmpegSource) wait() error {
	s.closed = true
	s.stdout.Close()
	if err := s.cmd.Wait(); err != nil {
		msg := bytes.TrimSpace(s.stderr.Bytes())
		if len(msg) > 0 {
			return fmt.Errorf("ffmpeg exited: %v: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg exited: %v", err)
	}
	return nil
}

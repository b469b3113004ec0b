package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/httputil"
)

const previewBoundary = "regiontrackframe"

// previewPollInterval bounds how often the MJPEG loop checks for a new
// rendered frame.
const previewPollInterval = 50 * time.Millisecond

// streamPreview serves annotated frames as an MJPEG stream. The stream
// ends when the session finishes or the client disconnects.
func (s *Server) streamPreview(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+previewBoundary)
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(previewPollInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			frame, seq := ms.Preview.Latest()
			if seq != lastSeq && len(frame) > 0 {
				lastSeq = seq
				fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", previewBoundary, len(frame))
				if _, err := w.Write(frame); err != nil {
					return
				}
				io.WriteString(w, "\r\n")
				flusher.Flush()
			}
			if ms.Preview.Done() && seq == lastSeq {
				return
			}
		}
	}
}

// previewStill serves the most recent annotated frame as a single JPEG.
func (s *Server) previewStill(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	frame, _ := ms.Preview.Latest()
	if len(frame) == 0 {
		httputil.NotFound(w, "no preview frame yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(frame)))
	w.Write(frame)
}

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/golang/geo/r2"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/httputil"
	"github.com/keyframe-systems/regiontrack/internal/report"
	"github.com/keyframe-systems/regiontrack/internal/track"
)

type createRequest struct {
	Source *SourceSpec `json:"source"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	ms, err := s.mgr.Create(req.Source)
	if err != nil {
		if errors.Is(err, ErrNoSource) {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ms.Status())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	managed := s.mgr.List()
	statuses := make([]SessionStatus, len(managed))
	for i, ms := range managed {
		statuses[i] = ms.Status()
	}
	httputil.WriteJSONOK(w, map[string]any{"sessions": statuses})
}

// session looks up the managed session from the path, writing a 404 on
// a miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*ManagedSession, bool) {
	id := r.PathValue("id")
	ms, ok := s.mgr.Get(id)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("no session %s", id))
		return nil, false
	}
	return ms, true
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, ms.Status())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.mgr.Remove(id) {
		httputil.NotFound(w, fmt.Sprintf("no session %s", id))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"deleted": id})
}

type nominateRequest struct {
	Boxes []boxSpec `json:"boxes"`
}

// boxSpec is a normalized axis-aligned box in the unit square.
type boxSpec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (s *Server) nominateRegions(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	var req nominateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	boxes := make([]r2.Rect, len(req.Boxes))
	for i, b := range req.Boxes {
		boxes[i] = geom.RectXYWH(b.X, b.Y, b.W, b.H)
	}
	if err := ms.Session.Nominate(boxes); err != nil {
		switch {
		case errors.Is(err, track.ErrSessionRunning):
			httputil.Conflict(w, err.Error())
		case errors.Is(err, track.ErrInvalidGeometry):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.InternalServerError(w, err.Error())
		}
		return
	}
	httputil.WriteJSONOK(w, ms.Status())
}

type startRequest struct {
	Mode      string `json:"mode"`
	Precision string `json:"precision"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Mode == "" {
		req.Mode = string(track.ModeObject)
	}
	if req.Precision == "" {
		req.Precision = string(track.PrecisionAccurate)
	}
	mode := track.Mode(req.Mode)
	precision := track.Precision(req.Precision)
	if !mode.Valid() {
		httputil.BadRequest(w, fmt.Sprintf("unknown tracking mode %q", req.Mode))
		return
	}
	if !precision.Valid() {
		httputil.BadRequest(w, fmt.Sprintf("unknown precision level %q", req.Precision))
		return
	}
	if err := s.mgr.Start(ms, mode, precision); err != nil {
		switch {
		case errors.Is(err, track.ErrSessionRunning):
			httputil.Conflict(w, err.Error())
		case errors.Is(err, track.ErrReaderInitializationFailed),
			errors.Is(err, track.ErrFirstFrameReadFailed):
			httputil.WriteJSONError(w, http.StatusBadGateway, err.Error())
		default:
			httputil.InternalServerError(w, err.Error())
		}
		return
	}
	httputil.WriteJSONOK(w, ms.Status())
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	ms.Session.Cancel()
	httputil.WriteJSONOK(w, ms.Status())
}

// streamEvents serves the session's observer events over SSE. A
// session that already finished gets a single terminal event.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	ms, ok := s.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subID, ch := ms.Hub.Subscribe()
	if ch == nil {
		status := ms.Status()
		line, _ := json.Marshal(map[string]any{
			"type":            "finished",
			"state":           status.State,
			"frames":          status.FrameCount,
			"tracking_failed": status.TrackingFailed,
		})
		fmt.Fprintf(w, "data: %s\n\n", line)
		flusher.Flush()
		return
	}
	defer ms.Hub.Unsubscribe(subID)

	fmt.Fprint(w, ": ping\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

func (s *Server) sessionReport(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHTML(w, d); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) sessionSummary(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"session": d.Session,
		"regions": report.Summarize(d),
	})
}

// loadReport pulls a session's recorded data from the store, mapping
// missing stores and unknown sessions to error responses.
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*report.Data, bool) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "persistence not configured")
		return nil, false
	}
	id := r.PathValue("id")
	d, err := report.Load(s.store, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, fmt.Sprintf("no recorded session %s", id))
		} else {
			httputil.InternalServerError(w, err.Error())
		}
		return nil, false
	}
	return d, true
}

// showConfig reports the manager's tuning overrides in the same schema
// accepted at startup.
func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.mgr.cfg.Tuning)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	sessions, err := s.store.Sessions(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"sessions": sessions})
}

// Package api exposes session orchestration over HTTP: creating and
// steering tracking sessions, streaming their progress and preview
// frames, and serving reports from the store.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/keyframe-systems/regiontrack/internal/store"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the session API. The store is optional; report and
// history endpoints respond 503 without it.
type Server struct {
	mgr   *Manager
	store *store.Store
}

func NewServer(mgr *Manager, st *store.Store) *Server {
	return &Server{mgr: mgr, store: st}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Routes builds the API mux. Debug routes are mounted when a store is
// configured.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/nominate", s.nominateRegions)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.startSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", s.cancelSession)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.streamEvents)
	mux.HandleFunc("GET /api/sessions/{id}/preview", s.streamPreview)
	mux.HandleFunc("GET /api/sessions/{id}/preview.jpg", s.previewStill)
	mux.HandleFunc("GET /api/sessions/{id}/report", s.sessionReport)
	mux.HandleFunc("GET /api/sessions/{id}/summary", s.sessionSummary)
	mux.HandleFunc("GET /api/history", s.listHistory)
	mux.HandleFunc("GET /api/config", s.showConfig)
	if s.store != nil {
		s.store.AttachDebugRoutes(mux)
	}
	return mux
}

package api

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/render"
	"github.com/keyframe-systems/regiontrack/internal/store"
	"github.com/keyframe-systems/regiontrack/internal/timeutil"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// ErrNoSource means neither the manager nor the create request named a
// frame source.
var ErrNoSource = errors.New("no frame source configured")

// ManagerConfig holds the shared collaborators sessions are built from.
type ManagerConfig struct {
	// NewSource is the default frame source constructor, used when a
	// create request names no source of its own.
	NewSource func() (video.Source, error)

	// Tracker relocates regions. Required.
	Tracker track.Tracker

	// Detector proposes rectangles for rectangle-mode sessions.
	Detector track.Detector

	// Store persists runs when set.
	Store *store.Store

	// Tuning supplies queue sizes, pacing, and ffmpeg defaults.
	Tuning *config.TuningConfig

	// Clock paces session loops. Defaults to the real clock.
	Clock timeutil.Clock

	// MediaRoot confines client-supplied source paths. Empty rejects
	// them.
	MediaRoot string

	// PreviewQuality is the preview JPEG quality, 1-100. Zero picks
	// the default.
	PreviewQuality int
}

// Manager owns the set of live sessions and the observer plumbing
// around each: event hub, preview buffer, and optional store recorder.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*ManagedSession
	order    []string
}

// ManagedSession bundles a session with its attached observers.
type ManagedSession struct {
	Session *track.Session
	Hub     *EventHub
	Preview *render.PreviewBuffer

	recorder *store.Recorder
}

// NewManager creates a session manager. The tracker is required.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("tracking capability is required")
	}
	if cfg.Tuning == nil {
		cfg.Tuning = config.EmptyTuningConfig()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*ManagedSession),
	}, nil
}

// Create builds a new idle session. A non-nil spec overrides the
// manager's default frame source.
func (m *Manager) Create(spec *SourceSpec) (*ManagedSession, error) {
	newSource := m.cfg.NewSource
	if spec != nil {
		built, err := buildSource(*spec, m.cfg.MediaRoot, m.cfg.Tuning.GetFFmpegPath())
		if err != nil {
			return nil, err
		}
		newSource = built
	}
	if newSource == nil {
		return nil, ErrNoSource
	}

	hub := NewEventHub()
	preview := render.NewPreviewBuffer(&render.Renderer{ApplyDisplay: true}, m.cfg.PreviewQuality)
	observers := track.MultiObserver{hub, preview}

	var recorder *store.Recorder
	if m.cfg.Store != nil {
		recorder = store.NewRecorder(m.cfg.Store)
		observers = append(observers, recorder)
	}

	sess, err := track.NewSession(track.SessionConfig{
		NewSource: newSource,
		Tracker:   m.cfg.Tracker,
		Detector:  m.cfg.Detector,
		Observer:  observers,
		Clock:     m.cfg.Clock,
		Pacing:    m.cfg.Tuning.GetPacing(),
		QueueSize: m.cfg.Tuning.GetObserverQueueSize(),
	})
	if err != nil {
		return nil, err
	}
	hub.Bind(sess)
	if recorder != nil {
		recorder.Bind(sess)
	}

	ms := &ManagedSession{
		Session:  sess,
		Hub:      hub,
		Preview:  preview,
		recorder: recorder,
	}
	m.mu.Lock()
	m.sessions[sess.ID] = ms
	m.order = append(m.order, sess.ID)
	m.mu.Unlock()
	return ms, nil
}

// Get returns the managed session with the given id.
func (m *Manager) Get(id string) (*ManagedSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	return ms, ok
}

// List returns all managed sessions in creation order.
func (m *Manager) List() []*ManagedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ManagedSession, 0, len(m.order))
	for _, id := range m.order {
		if ms, ok := m.sessions[id]; ok {
			out = append(out, ms)
		}
	}
	return out
}

// Start launches the session's run and finalizes persistence when the
// run terminates.
func (m *Manager) Start(ms *ManagedSession, mode track.Mode, precision track.Precision) error {
	if err := ms.Session.Start(mode, precision); err != nil {
		return err
	}
	go m.finalize(ms)
	return nil
}

// finalize waits out the run and flushes the recorded terminal state.
func (m *Manager) finalize(ms *ManagedSession) {
	err := ms.Session.Wait()
	if ms.recorder == nil {
		return
	}
	if ferr := ms.recorder.Finalize(err); ferr != nil {
		log.Printf("session %s: failed to record terminal state: %v", ms.Session.ID, ferr)
	}
	if perr := ms.recorder.Err(); perr != nil {
		log.Printf("session %s: persistence degraded during run: %v", ms.Session.ID, perr)
	}
}

// Remove cancels the session if needed and drops it from the registry.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for i, sid := range m.order {
			if sid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	ms.Session.Cancel()
	return true
}

// SessionStatus is the JSON shape of one session's state.
type SessionStatus struct {
	ID             string           `json:"id"`
	State          track.State      `json:"state"`
	Mode           track.Mode       `json:"mode,omitempty"`
	Precision      track.Precision  `json:"precision,omitempty"`
	FrameCount     int              `json:"frame_count"`
	TrackingFailed bool             `json:"tracking_failed"`
	Error          string           `json:"error,omitempty"`
	Regions        []track.Snapshot `json:"regions"`
}

// Status snapshots the session's current state.
func (ms *ManagedSession) Status() SessionStatus {
	status := SessionStatus{
		ID:             ms.Session.ID,
		State:          ms.Session.State(),
		Mode:           ms.Session.Mode(),
		Precision:      ms.Session.Precision(),
		FrameCount:     ms.Session.FrameCount(),
		TrackingFailed: ms.Session.TrackingFailed(),
		Regions:        ms.Session.Regions(),
	}
	if err := ms.Session.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

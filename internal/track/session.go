package track

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/timeutil"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// State is the lifecycle state of a session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"   // frame source exhausted
	StateCancelled State = "cancelled" // cancellation observed at a loop boundary
	StateFailed    State = "failed"    // non-recoverable mid-loop failure
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCancelled || s == StateFailed
}

// DefaultQueueSize is the observer event queue depth used when
// SessionConfig.QueueSize is zero.
const DefaultQueueSize = 64

// SessionConfig holds the collaborators and knobs for a session.
type SessionConfig struct {
	// NewSource constructs the frame source, called once per start.
	NewSource func() (video.Source, error)

	// Tracker relocates seeded regions each frame.
	Tracker Tracker

	// Detector proposes initial rectangles. Required only for
	// rectangle mode.
	Detector Detector

	// Observer receives frames, progress, and the finished signal.
	// Defaults to NopObserver.
	Observer Observer

	// Clock paces the loop and stamps telemetry. Defaults to RealClock.
	Clock timeutil.Clock

	// Pacing, when true, sleeps one nominal frame interval after each
	// processed frame to approximate playback speed.
	Pacing bool

	// QueueSize is the observer event queue depth. Zero means
	// DefaultQueueSize. Sends block when the queue is full.
	QueueSize int
}

// Session owns a set of tracked regions and runs the frame loop that
// relocates them across a video stream. All region and seed state is
// mutated only by the session: externally before a run (Nominate),
// internally by the loop worker during a run.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	cfg   SessionConfig
	clock timeutil.Clock

	cancel atomic.Bool

	mu             sync.Mutex
	state          State
	mode           Mode
	precision      Precision
	regions        map[RegionID]*Region
	order          []RegionID
	seeds          map[RegionID]Observation
	frameCount     int
	trackingFailed bool
	runErr         error
	runDone        chan struct{}
}

// NewSession creates an idle session. NewSource and Tracker are
// required; a Detector is required only to start in rectangle mode.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.NewSource == nil {
		return nil, fmt.Errorf("frame source constructor is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("tracking capability is required")
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Session{
		ID:      fmt.Sprintf("ses_%s", uuid.NewString()),
		cfg:     cfg,
		clock:   cfg.Clock,
		state:   StateIdle,
		regions: make(map[RegionID]*Region),
		seeds:   make(map[RegionID]Observation),
	}, nil
}

// Nominate replaces the session's regions with one region per box, in
// order. Each region gets a fresh id, the next palette color, and a
// seed observation equal to its nomination geometry. Boxes with zero
// width or height fail the whole call with ErrInvalidGeometry and leave
// existing regions untouched. Not allowed while running.
func (s *Session) Nominate(boxes []r2.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrSessionRunning
	}
	for i, b := range boxes {
		if geom.RectIsDegenerate(b) {
			return fmt.Errorf("box %d: %w", i, ErrInvalidGeometry)
		}
	}
	quads := make([]geom.Quad, len(boxes))
	for i, b := range boxes {
		quads[i] = geom.QuadFromRect(b)
	}
	s.replaceRegionsLocked(quads)
	diagf("session %s: nominated %d regions", s.ID, len(quads))
	return nil
}

// replaceRegionsLocked rebuilds the region and seed mappings from the
// given quads. Callers hold s.mu.
func (s *Session) replaceRegionsLocked(quads []geom.Quad) {
	s.regions = make(map[RegionID]*Region, len(quads))
	s.order = make([]RegionID, 0, len(quads))
	s.seeds = make(map[RegionID]Observation, len(quads))
	for i, q := range quads {
		r := &Region{
			ID:              NewRegionID(),
			Quad:            q,
			Style:           StyleSolid,
			Color:           PaletteColor(i),
			Confidence:      1,
			NominationIndex: i,
		}
		s.regions[r.ID] = r
		s.order = append(s.order, r.ID)
		s.seeds[r.ID] = Observation{
			RegionID:   r.ID,
			Kind:       KindForMode(s.mode),
			Quad:       q,
			Confidence: 1,
		}
	}
}

// reseedLocked rebuilds the seed mapping from current region geometry.
// Callers hold s.mu.
func (s *Session) reseedLocked() {
	kind := KindForMode(s.mode)
	s.seeds = make(map[RegionID]Observation, len(s.regions))
	for id, r := range s.regions {
		s.seeds[id] = Observation{
			RegionID:   id,
			Kind:       kind,
			Quad:       r.Quad,
			Confidence: r.Confidence,
		}
	}
}

// Start transitions the session to Running and launches the frame loop
// worker. In rectangle mode the detection capability nominates regions
// from the first frame, replacing any previous set; in object mode the
// regions come from a prior Nominate call. The first frame is consumed
// here and not counted by the loop. Start fails without changing state
// on source construction, first-frame, or detection errors.
func (s *Session) Start(mode Mode, precision Precision) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown tracking mode %q", mode)
	}
	if !precision.Valid() {
		return fmt.Errorf("unknown precision level %q", precision)
	}
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	if mode == ModeRectangle && s.cfg.Detector == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no detection capability configured", ErrRectangleDetectionFailed)
	}
	s.mu.Unlock()

	src, err := s.cfg.NewSource()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReaderInitializationFailed, err)
	}
	first, err := src.Next()
	if err != nil {
		src.Close()
		return fmt.Errorf("%w: %v", ErrFirstFrameReadFailed, err)
	}

	var proposed []geom.Quad
	if mode == ModeRectangle {
		proposals, err := s.cfg.Detector.DetectRectangles(first, src.Orientation())
		if err != nil {
			src.Close()
			return fmt.Errorf("%w: %v", ErrRectangleDetectionFailed, err)
		}
		proposed = make([]geom.Quad, len(proposals))
		for i, p := range proposals {
			proposed[i] = p.Quad
		}
	}

	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		src.Close()
		return ErrSessionRunning
	}
	s.mode = mode
	s.precision = precision
	if mode == ModeRectangle {
		s.replaceRegionsLocked(proposed)
	}
	s.reseedLocked()
	s.frameCount = 0
	s.trackingFailed = false
	s.runErr = nil
	s.state = StateRunning
	runDone := make(chan struct{})
	s.runDone = runDone
	regionCount := len(s.order)
	s.mu.Unlock()

	s.cancel.Store(false)

	events := make(chan event, s.cfg.QueueSize)
	dispatchDone := make(chan struct{})
	go s.dispatch(events, dispatchDone)
	go func() {
		err := s.runLoop(src, events)
		<-dispatchDone
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		close(runDone)
	}()

	diagf("session %s: started mode=%s precision=%s regions=%d",
		s.ID, mode, precision, regionCount)
	return nil
}

// Wait blocks until the current run terminates and returns its deferred
// error: nil for a clean stop or cancellation, ErrObjectTrackingFailed
// if any batch had a problem, or the fatal error for a Failed run.
// Returns immediately if no run was started.
func (s *Session) Wait() error {
	s.mu.Lock()
	done := s.runDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Run starts the session and waits for the loop to finish.
func (s *Session) Run(mode Mode, precision Precision) error {
	if err := s.Start(mode, precision); err != nil {
		return err
	}
	return s.Wait()
}

// Cancel requests cooperative cancellation. Idempotent and safe to call
// from any goroutine at any time; takes effect at the next iteration
// boundary. The flag is re-armed only by the next Start.
func (s *Session) Cancel() {
	s.cancel.Store(true)
}

// runLoop executes the frame loop until the source is exhausted,
// cancellation is observed, or a non-recoverable failure occurs. It
// always enqueues the finished event exactly once, then closes the
// event channel, and returns the run's deferred error.
func (s *Session) runLoop(src video.Source, events chan<- event) error {
	defer src.Close()

	orientation := src.Orientation()
	display := src.DisplayTransform()
	interval := src.FrameInterval()

	terminal := StateStopped
	var fatal error
	trackingFailed := false

	for {
		if s.cancel.Load() {
			terminal = StateCancelled
			break
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			terminal = StateFailed
			fatal = fmt.Errorf("read frame: %w", err)
			break
		}

		s.mu.Lock()
		s.frameCount++
		n := s.frameCount
		batch := s.buildBatchLocked()
		s.mu.Unlock()

		events <- event{kind: eventProgress, frameIndex: n}

		var results []Observation
		if len(batch) > 0 {
			results, err = s.cfg.Tracker.Track(frame, orientation, batch)
			if err != nil {
				if errors.Is(err, ErrCapabilityUnavailable) {
					terminal = StateFailed
					fatal = fmt.Errorf("track frame %d: %w", n, err)
					break
				}
				// A failed batch call may still carry usable
				// per-region results.
				trackingFailed = true
				opsf("session %s: frame %d batch error: %v", s.ID, n, err)
			}
		}

		updated := s.applyResults(results)
		tracef("session %s: frame %d regions=%d updated=%d",
			s.ID, n, len(batch), len(updated))

		events <- event{kind: eventFrame, frame: frame, display: display, updated: updated}

		if s.cfg.Pacing && interval > 0 {
			s.clock.Sleep(interval)
		}
	}

	s.mu.Lock()
	s.state = terminal
	s.trackingFailed = trackingFailed
	frames := s.frameCount
	s.mu.Unlock()

	events <- event{kind: eventFinished}
	close(events)

	diagf("session %s: %s after %d frames (tracking failures: %t)",
		s.ID, terminal, frames, trackingFailed)

	if fatal != nil {
		return fatal
	}
	if trackingFailed {
		return ErrObjectTrackingFailed
	}
	return nil
}

// buildBatchLocked constructs one request per region from its current
// seed, in nomination order. Callers hold s.mu.
func (s *Session) buildBatchLocked() []Request {
	if len(s.order) == 0 {
		return nil
	}
	batch := make([]Request, 0, len(s.order))
	for _, id := range s.order {
		seed, ok := s.seeds[id]
		if !ok {
			continue
		}
		batch = append(batch, Request{Seed: seed, Precision: s.precision})
	}
	return batch
}

// applyResults merges tracking results into region state. Results whose
// kind does not match the session mode, or whose id matches no region,
// are dropped without touching the region's seed. Matching results
// update the region's quad, style, and confidence, and replace its seed
// for the next frame. Returns snapshots of the updated regions.
func (s *Session) applyResults(results []Observation) []Snapshot {
	if len(results) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	want := KindForMode(s.mode)
	var updated []Snapshot
	for _, res := range results {
		if res.Kind != want {
			tracef("session %s: dropping %s result for %s in %s mode",
				s.ID, res.Kind, res.RegionID, s.mode)
			continue
		}
		r, ok := s.regions[res.RegionID]
		if !ok {
			continue
		}
		r.Quad = res.Quad
		r.Confidence = res.Confidence
		r.Style = StyleForConfidence(res.Confidence)
		r.Updates++
		s.seeds[res.RegionID] = res
		updated = append(updated, r.snapshot())
	}
	return updated
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the mode of the current or most recent run.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Precision returns the precision level of the current or most recent
// run.
func (s *Session) Precision() Precision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.precision
}

// FrameCount returns the number of frames processed so far in the
// current or most recent run.
func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCount
}

// TrackingFailed reports whether any batch of the most recent run had a
// problem. Meaningful once the run has terminated.
func (s *Session) TrackingFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackingFailed
}

// Err returns the most recent run's deferred error, nil while running
// or before any run.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Regions returns snapshots of all regions in nomination order.
func (s *Session) Regions() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := s.regions[id]; ok {
			out = append(out, r.snapshot())
		}
	}
	return out
}

// event carries one observer callback through the dispatch queue.
type event struct {
	kind       eventKind
	frame      *video.Frame
	display    geom.Affine
	updated    []Snapshot
	frameIndex int
}

type eventKind int

const (
	eventFrame eventKind = iota
	eventProgress
	eventFinished
)

// dispatch delivers queued events to the observer in order, on its own
// goroutine, so observer work never blocks the frame loop.
func (s *Session) dispatch(events <-chan event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.kind {
		case eventFrame:
			s.cfg.Observer.OnFrame(ev.frame, ev.display, ev.updated)
		case eventProgress:
			s.cfg.Observer.OnProgress(ev.frameIndex)
		case eventFinished:
			s.cfg.Observer.OnFinished()
		}
	}
}

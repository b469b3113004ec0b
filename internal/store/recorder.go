package store

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var _ track.Observer = (*Recorder)(nil)

// Recorder is a session observer that persists the run: the session row
// on the first callback, one observation row per region result, and the
// terminal state when the run finishes. Persistence failures never
// disturb the session; the first one is kept and exposed via Err.
//
// The recorder is built before the session so it can be handed to
// SessionConfig.Observer; Bind attaches the session before it starts.
type Recorder struct {
	store   *Store
	session *track.Session

	mu      sync.Mutex
	created bool
	frame   int
	err     error
}

func NewRecorder(st *Store) *Recorder {
	return &Recorder{store: st}
}

// Bind attaches the session whose runs the recorder persists. Must be
// called before the session starts.
func (r *Recorder) Bind(sess *track.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = sess
}

func (r *Recorder) OnProgress(frameIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSessionLocked()
	r.frame = frameIndex
}

func (r *Recorder) OnFrame(_ *video.Frame, _ geom.Affine, updated []track.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSessionLocked()
	if len(updated) == 0 {
		return
	}
	recs := make([]ObservationRecord, 0, len(updated))
	for _, snap := range updated {
		recs = append(recs, observationRecord(r.session.ID, r.frame, snap))
	}
	if err := r.store.RecordObservations(recs); err != nil {
		r.keepErrLocked(err)
	}
}

func (r *Recorder) OnFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSessionLocked()
	var msg string
	if r.session.TrackingFailed() {
		msg = track.ErrObjectTrackingFailed.Error()
	}
	err := r.store.FinishSession(
		r.session.ID,
		string(r.session.State()),
		r.session.FrameCount(),
		r.session.TrackingFailed(),
		msg,
	)
	if err != nil {
		r.keepErrLocked(err)
	}
}

// Finalize re-records the terminal state with the error the run
// returned. Call it after the session's Wait.
func (r *Recorder) Finalize(runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	return r.store.FinishSession(
		r.session.ID,
		string(r.session.State()),
		r.session.FrameCount(),
		r.session.TrackingFailed(),
		msg,
	)
}

// Err returns the first persistence failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ensureSessionLocked inserts the session and region rows once, on the
// first callback after Start.
func (r *Recorder) ensureSessionLocked() {
	if r.created {
		return
	}
	r.created = true

	rec := SessionRecord{
		SessionID: r.session.ID,
		Mode:      string(r.session.Mode()),
		Precision: string(r.session.Precision()),
		State:     string(r.session.State()),
	}
	// Regions are returned in nomination order.
	regions := r.session.Regions()
	regRecs := make([]RegionRecord, 0, len(regions))
	for i, reg := range regions {
		regRecs = append(regRecs, RegionRecord{
			SessionID:       r.session.ID,
			RegionID:        string(reg.ID),
			NominationIndex: i,
			Color:           colorHex(reg.Color),
		})
	}
	if err := r.store.CreateSession(rec, regRecs); err != nil {
		r.keepErrLocked(err)
	}
}

func (r *Recorder) keepErrLocked(err error) {
	if r.err == nil {
		r.err = err
	}
}

func observationRecord(sessionID string, frameIndex int, snap track.Snapshot) ObservationRecord {
	b := snap.Quad.Bound()
	return ObservationRecord{
		SessionID:  sessionID,
		RegionID:   string(snap.ID),
		FrameIndex: frameIndex,
		X:          b.X.Lo,
		Y:          b.Y.Lo,
		W:          b.X.Length(),
		H:          b.Y.Length(),
		Confidence: snap.Confidence,
		Style:      string(snap.Style),
	}
}

func colorHex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

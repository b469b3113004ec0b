package track

import (
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// Observer receives session output: per-frame rendering data, frame
// count progress, and a terminal finished signal. Callbacks are invoked
// from the session's dispatch goroutine, never from the frame loop
// worker, and never concurrently with each other. OnFinished is always
// the last callback of a run and fires exactly once.
type Observer interface {
	// OnFrame delivers one processed frame: its pixel data, the
	// frame-to-display transform, and snapshots of the regions that
	// produced a result this frame (possibly none).
	OnFrame(frame *video.Frame, display geom.Affine, updated []Snapshot)

	// OnProgress reports the 1-based index of the frame about to be
	// processed.
	OnProgress(frameIndex int)

	// OnFinished signals that the frame loop has terminated.
	OnFinished()
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) OnFrame(*video.Frame, geom.Affine, []Snapshot) {}
func (NopObserver) OnProgress(int)                                {}
func (NopObserver) OnFinished()                                   {}

// MultiObserver fans callbacks out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnFrame(frame *video.Frame, display geom.Affine, updated []Snapshot) {
	for _, o := range m {
		o.OnFrame(frame, display, updated)
	}
}

func (m MultiObserver) OnProgress(frameIndex int) {
	for _, o := range m {
		o.OnProgress(frameIndex)
	}
}

func (m MultiObserver) OnFinished() {
	for _, o := range m {
		o.OnFinished()
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = MultiObserver(nil)
)

package track

import "errors"

// Session error taxonomy. Fatal errors surface synchronously from the
// call that triggered them; ErrObjectTrackingFailed is deferred until
// the frame loop has fully run to completion or cancellation.
var (
	// ErrReaderInitializationFailed means the frame source could not be
	// constructed. Aborts Start before any state changes.
	ErrReaderInitializationFailed = errors.New("frame reader initialization failed")

	// ErrFirstFrameReadFailed means the nomination/preview frame could
	// not be read. Aborts Start.
	ErrFirstFrameReadFailed = errors.New("first frame read failed")

	// ErrRectangleDetectionFailed means rectangle detection could not
	// run on the preview frame. Aborts Start in rectangle mode.
	ErrRectangleDetectionFailed = errors.New("rectangle detection failed")

	// ErrInvalidGeometry means a nominated box has zero width or
	// height. Fails that nomination call; existing regions are kept.
	ErrInvalidGeometry = errors.New("nominated region has zero width or height")

	// ErrObjectTrackingFailed summarizes that at least one per-frame
	// batch had a problem. Reported once, after the loop exits; it does
	// not identify which regions or frames were affected.
	ErrObjectTrackingFailed = errors.New("tracking failed for at least one region")

	// ErrCapabilityUnavailable marks a tracking capability that could
	// not run at all for a frame. A batch error wrapping it fails the
	// session instead of setting the deferred tracking-failure flag.
	ErrCapabilityUnavailable = errors.New("tracking capability unavailable")

	// ErrSessionRunning rejects nomination and start calls made while
	// the frame loop is running.
	ErrSessionRunning = errors.New("session is running")
)

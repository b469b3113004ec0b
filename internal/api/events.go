package api

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

var _ track.Observer = (*EventHub)(nil)

// EventHub fans one session's callbacks out to any number of event
// stream subscribers as JSON lines. Slow subscribers drop events rather
// than blocking the session's dispatch queue. The hub closes all
// subscriber channels when the session finishes.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	session     *track.Session
	lastFrame   int
	closed      bool
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[string]chan string)}
}

// Bind attaches the session whose run the hub reports. Must be called
// before the session starts.
func (h *EventHub) Bind(sess *track.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = sess
}

// randomID generates a random subscriber ID (8 byte random hex encoded
// value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new channel for receiving event payloads. The ID
// identifies the channel when unsubscribing. A nil channel is returned
// once the session has finished.
func (h *EventHub) Subscribe() (string, chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", nil
	}
	id := randomID()
	ch := make(chan string, 16)
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *EventHub) OnProgress(frameIndex int) {
	h.mu.Lock()
	h.lastFrame = frameIndex
	h.mu.Unlock()
	h.publish(map[string]any{"type": "progress", "frame": frameIndex})
}

func (h *EventHub) OnFrame(_ *video.Frame, _ geom.Affine, updated []track.Snapshot) {
	if len(updated) == 0 {
		return
	}
	h.mu.Lock()
	frame := h.lastFrame
	h.mu.Unlock()
	h.publish(map[string]any{"type": "regions", "frame": frame, "regions": updated})
}

func (h *EventHub) OnFinished() {
	h.mu.Lock()
	sess := h.session
	h.mu.Unlock()

	ev := map[string]any{"type": "finished"}
	if sess != nil {
		ev["state"] = sess.State()
		ev["frames"] = sess.FrameCount()
		ev["tracking_failed"] = sess.TrackingFailed()
	}
	h.publish(ev)
	h.close()
}

// publish marshals the event and sends it to every subscriber that has
// queue space.
func (h *EventHub) publish(event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event hub: failed to marshal %v event: %v", event["type"], err)
		return
	}
	line := string(payload)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- line:
		default:
			// Skip full channels so the dispatch queue never stalls.
		}
	}
}

// close closes all subscriber channels and rejects new subscriptions.
func (h *EventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}

package api

import (
	"encoding/json"
	"testing"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
)

func decodeEvent(t *testing.T, line string) map[string]any {
	t.Helper()
	var ev map[string]any
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("Unmarshal(%q): %v", line, err)
	}
	return ev
}

func TestEventHubPublish(t *testing.T) {
	hub := NewEventHub()
	id, ch := hub.Subscribe()
	if id == "" || ch == nil {
		t.Fatal("Subscribe returned no channel")
	}

	hub.OnProgress(3)
	ev := decodeEvent(t, <-ch)
	if ev["type"] != "progress" || ev["frame"] != float64(3) {
		t.Errorf("progress event = %v", ev)
	}

	snap := track.Snapshot{ID: "rgn_x", Style: track.StyleSolid, Color: track.PaletteColor(0), Confidence: 0.5}
	hub.OnFrame(nil, geom.Affine{}, []track.Snapshot{snap})
	ev = decodeEvent(t, <-ch)
	if ev["type"] != "regions" || ev["frame"] != float64(3) {
		t.Errorf("regions event = %v", ev)
	}
	regions, ok := ev["regions"].([]any)
	if !ok || len(regions) != 1 {
		t.Fatalf("regions payload = %v", ev["regions"])
	}

	// Frames with no region results publish nothing.
	hub.OnFrame(nil, geom.Affine{}, nil)
	if len(ch) != 0 {
		t.Errorf("empty frame update published an event")
	}
}

func TestEventHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewEventHub()
	_, ch := hub.Subscribe()

	// Publishing far past the queue size must not block.
	for i := 1; i <= 40; i++ {
		hub.OnProgress(i)
	}
	if len(ch) != cap(ch) {
		t.Errorf("queued %d events, want full queue of %d", len(ch), cap(ch))
	}
	ev := decodeEvent(t, <-ch)
	if ev["frame"] != float64(1) {
		t.Errorf("oldest queued frame = %v, want 1", ev["frame"])
	}
}

func TestEventHubFinishClosesSubscribers(t *testing.T) {
	hub := NewEventHub()
	_, ch := hub.Subscribe()

	hub.OnFinished()

	ev := decodeEvent(t, <-ch)
	if ev["type"] != "finished" {
		t.Errorf("terminal event = %v", ev)
	}
	if _, open := <-ch; open {
		t.Error("subscriber channel still open after finish")
	}
	if id, ch2 := hub.Subscribe(); id != "" || ch2 != nil {
		t.Error("Subscribe succeeded on a finished hub")
	}
	// A second finish must not panic on the closed hub.
	hub.OnFinished()
}

func TestEventHubUnsubscribe(t *testing.T) {
	hub := NewEventHub()
	id, ch := hub.Subscribe()

	hub.Unsubscribe(id)
	if _, open := <-ch; open {
		t.Error("channel still open after Unsubscribe")
	}
	hub.OnProgress(1)
	hub.Unsubscribe(id)
}

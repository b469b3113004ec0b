package testutil

import (
	"errors"
	"testing"

	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

func TestEchoTrackerEchoesSeeds(t *testing.T) {
	t.Parallel()

	seed := track.Observation{
		RegionID:   "rgn_a",
		Kind:       track.KindObject,
		Quad:       geom.QuadFromRect(geom.RectXYWH(0.25, 0.25, 0.5, 0.5)),
		Confidence: 1,
	}
	out, err := EchoTracker{Confidence: 0.4}.Track(nil, video.OrientationUp, []track.Request{{Seed: seed}})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("results = %d, want 1", len(out))
	}
	if out[0].RegionID != seed.RegionID || out[0].Quad != seed.Quad {
		t.Errorf("result = %+v, want the seed's identity and geometry", out[0])
	}
	if out[0].Confidence != 0.4 {
		t.Errorf("confidence = %v, want 0.4", out[0].Confidence)
	}
}

func TestEchoTrackerBatchError(t *testing.T) {
	t.Parallel()

	batchErr := errors.New("matcher lost lock")
	seed := track.Observation{RegionID: "rgn_a", Kind: track.KindObject}
	out, err := EchoTracker{Confidence: 0.2, BatchErr: batchErr}.Track(nil, video.OrientationUp, []track.Request{{Seed: seed}})
	if !errors.Is(err, batchErr) {
		t.Fatalf("err = %v, want the batch error", err)
	}
	if len(out) != 1 {
		t.Errorf("batch error dropped the partial results")
	}
}

func TestBlankSourceProducesFrames(t *testing.T) {
	t.Parallel()

	src := &BlankSource{}
	defer src.Close()

	for i := 0; i < 2; i++ {
		frame, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if b := frame.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
			t.Fatalf("frame bounds = %v, want non-empty", b)
		}
	}
	if !src.DisplayTransform().IsIdentity() {
		t.Error("blank source should need no display correction")
	}
}

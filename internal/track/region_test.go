package track

import (
	"strings"
	"testing"
)

func TestStyleForConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       Style
	}{
		{"high confidence", 0.9, StyleSolid},
		{"just above threshold", 0.51, StyleSolid},
		{"exactly threshold", 0.5, StyleDashed},
		{"low confidence", 0.3, StyleDashed},
		{"zero confidence", 0, StyleDashed},
		{"full confidence", 1, StyleSolid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StyleForConfidence(tt.confidence); got != tt.want {
				t.Errorf("StyleForConfidence(%v) = %v, want %v", tt.confidence, got, tt.want)
			}
		})
	}
}

func TestPaletteColorCycles(t *testing.T) {
	if len(Palette) == 0 {
		t.Fatal("palette is empty")
	}
	for i := 0; i < len(Palette); i++ {
		if PaletteColor(i) != Palette[i] {
			t.Errorf("PaletteColor(%d) = %v, want %v", i, PaletteColor(i), Palette[i])
		}
	}
	// Indexes past the palette wrap around.
	if PaletteColor(len(Palette)) != Palette[0] {
		t.Errorf("PaletteColor(%d) = %v, want %v", len(Palette), PaletteColor(len(Palette)), Palette[0])
	}
	if PaletteColor(2*len(Palette)+3) != Palette[3] {
		t.Error("palette index does not wrap for large indexes")
	}
}

func TestNewRegionID(t *testing.T) {
	seen := make(map[RegionID]bool)
	for i := 0; i < 100; i++ {
		id := NewRegionID()
		if !strings.HasPrefix(string(id), "rgn_") {
			t.Fatalf("id %q does not have the rgn_ prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestModeAndPrecisionValidation(t *testing.T) {
	if !ModeObject.Valid() || !ModeRectangle.Valid() {
		t.Error("known modes reported invalid")
	}
	if Mode("face").Valid() {
		t.Error("unknown mode reported valid")
	}
	if !PrecisionFast.Valid() || !PrecisionAccurate.Valid() {
		t.Error("known precision levels reported invalid")
	}
	if Precision("turbo").Valid() {
		t.Error("unknown precision reported valid")
	}
}

func TestKindForMode(t *testing.T) {
	if KindForMode(ModeObject) != KindObject {
		t.Error("object mode should consume object observations")
	}
	if KindForMode(ModeRectangle) != KindRectangle {
		t.Error("rectangle mode should consume rectangle observations")
	}
}

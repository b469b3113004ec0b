package track

import (
	"fmt"
	"image/color"

	"github.com/google/uuid"

	"github.com/keyframe-systems/regiontrack/internal/geom"
)

// RegionID uniquely identifies a tracked region. IDs are assigned once
// at nomination and never reused within a session.
type RegionID string

// NewRegionID mints a fresh region identifier.
func NewRegionID() RegionID {
	return RegionID(fmt.Sprintf("rgn_%s", uuid.NewString()))
}

// Style selects how a region outline is drawn: solid for a confident
// fix, dashed for an uncertain one.
type Style string

const (
	StyleSolid  Style = "solid"
	StyleDashed Style = "dashed"
)

// SolidConfidenceThreshold is the confidence above which a region is
// drawn solid.
const SolidConfidenceThreshold = 0.5

// StyleForConfidence derives the outline style from a tracking
// confidence.
func StyleForConfidence(confidence float64) Style {
	if confidence > SolidConfidenceThreshold {
		return StyleSolid
	}
	return StyleDashed
}

// Mode selects what kind of content a session tracks.
type Mode string

const (
	// ModeObject tracks free-form objects nominated by user-drawn boxes.
	ModeObject Mode = "object"
	// ModeRectangle tracks rectangles proposed by the detection
	// capability on the first frame.
	ModeRectangle Mode = "rectangle"
)

// Valid reports whether m is a known tracking mode.
func (m Mode) Valid() bool {
	return m == ModeObject || m == ModeRectangle
}

// Precision is the speed/accuracy trade-off passed through to the
// tracking capability. The session forwards it with every request and
// never interprets it.
type Precision string

const (
	PrecisionFast     Precision = "fast"
	PrecisionAccurate Precision = "accurate"
)

// Valid reports whether p is a known precision level.
func (p Precision) Valid() bool {
	return p == PrecisionFast || p == PrecisionAccurate
}

// Palette is the fixed set of region colors, assigned round-robin by
// nomination order.
var Palette = []color.RGBA{
	{R: 0xE6, G: 0x3B, B: 0x2E, A: 0xFF}, // red
	{R: 0x2E, G: 0xCC, B: 0x40, A: 0xFF}, // green
	{R: 0x00, G: 0x74, B: 0xD9, A: 0xFF}, // blue
	{R: 0xFF, G: 0xDC, B: 0x00, A: 0xFF}, // yellow
	{R: 0xB1, G: 0x0D, B: 0xC9, A: 0xFF}, // purple
	{R: 0x39, G: 0xCC, B: 0xCC, A: 0xFF}, // teal
	{R: 0xFF, G: 0x85, B: 0x1B, A: 0xFF}, // orange
	{R: 0xF0, G: 0x12, B: 0xBE, A: 0xFF}, // magenta
}

// PaletteColor returns the color for the given nomination index.
func PaletteColor(index int) color.RGBA {
	return Palette[index%len(Palette)]
}

// Region is one tracked area: stable identity, current quad geometry,
// and confidence-derived presentation. Regions start solid with full
// confidence until a tracking result says otherwise.
type Region struct {
	ID    RegionID
	Quad  geom.Quad
	Style Style
	Color color.RGBA

	// Confidence is the most recently received tracking confidence.
	Confidence float64

	// NominationIndex is the region's position in nomination order.
	NominationIndex int

	// Updates counts the frames that produced a result for this region.
	Updates int
}

// Snapshot is an immutable copy of a region's renderable state.
type Snapshot struct {
	ID         RegionID   `json:"id"`
	Quad       geom.Quad  `json:"quad"`
	Style      Style      `json:"style"`
	Color      color.RGBA `json:"color"`
	Confidence float64    `json:"confidence"`
}

func (r *Region) snapshot() Snapshot {
	return Snapshot{
		ID:         r.ID,
		Quad:       r.Quad,
		Style:      r.Style,
		Color:      r.Color,
		Confidence: r.Confidence,
	}
}

// Package ollama adapts a vision language model served by Ollama into a
// rectangle detection capability. The frame is sent as a PNG attachment
// and the model is asked for normalized bounding boxes as JSON.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/ollama/ollama/api"

	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/video"
)

// detectPrompt instructs the model to act as a rectangle locator. The
// coordinates it returns use the conventional image layout with the
// origin at the top left and y growing downward.
const detectPrompt = `You are a rectangular region locator.
Find up to %d distinct prominent rectangular regions in the image.
Respond with ONLY a JSON array, no prose, in this exact shape:
[{"x":0.1,"y":0.2,"w":0.3,"h":0.25,"confidence":0.9}]
All values are fractions of the image size. x,y is the top-left corner
of the box, y grows downward. confidence is in [0,1]. Respond with []
if nothing stands out.`

const defaultTimeout = 120 * time.Second

var _ track.Detector = (*Detector)(nil)

// Detector implements rectangle detection by querying an Ollama vision
// model such as llava or minicpm-v.
type Detector struct {
	client  *api.Client
	model   string
	cfg     *config.TuningConfig
	timeout time.Duration
}

// NewDetector builds a Detector talking to the Ollama server at
// serverURL. Any path component of the URL is ignored.
func NewDetector(serverURL, model string, cfg *config.TuningConfig) (*Detector, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %v", err)
	}
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &Detector{
		client:  api.NewClient(base, http.DefaultClient),
		model:   model,
		cfg:     cfg,
		timeout: defaultTimeout,
	}, nil
}

func (d *Detector) DetectRectangles(frame *video.Frame, _ video.Orientation) ([]track.Proposal, error) {
	if frame == nil || frame.Pixels == nil {
		return nil, errors.New("no pixel data in frame")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Pixels); err != nil {
		return nil, fmt.Errorf("encode frame: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	maxResults := d.cfg.GetDetectorMaxResults()
	stream := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(detectPrompt, maxResults),
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &stream,
	}

	var response string
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %v", err)
	}

	boxes, err := parseBoxes(response)
	if err != nil {
		return nil, err
	}
	return d.filterProposals(boxes), nil
}

// modelBox is a bounding box as the model reports it, top-left origin.
type modelBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComm = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments, trailing commas, and
// any prose surrounding the outermost JSON array.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")
	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComm.ReplaceAllString(raw, "$1")
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func parseBoxes(raw string) ([]modelBox, error) {
	raw = sanitizeModelJSON(raw)
	if raw == "" || !strings.HasPrefix(raw, "[") {
		return nil, fmt.Errorf("model returned no JSON array: %.80q", raw)
	}
	var boxes []modelBox
	if err := json.Unmarshal([]byte(raw), &boxes); err != nil {
		return nil, fmt.Errorf("parse model response: %v", err)
	}
	return boxes, nil
}

// filterProposals converts model boxes into proposals, flipping y to
// the lower-left origin, clamping to the unit square, and applying the
// detection contract's aspect, size, count, and ordering bounds.
func (d *Detector) filterProposals(boxes []modelBox) []track.Proposal {
	proposals := make([]track.Proposal, 0, len(boxes))
	for _, b := range boxes {
		r := geom.RectXYWH(clamp01(b.X), clamp01(1-b.Y-b.H), clamp01(b.W), clamp01(b.H))
		if geom.RectIsDegenerate(r) {
			continue
		}
		if minDim(r) < d.cfg.GetDetectorMinSize() {
			continue
		}
		aspect := geom.AspectRatio(r)
		if aspect < d.cfg.GetDetectorMinAspect() || aspect > d.cfg.GetDetectorMaxAspect() {
			continue
		}
		proposals = append(proposals, track.Proposal{
			Quad:       geom.QuadFromRect(r),
			Confidence: clamp01(b.Confidence),
		})
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Confidence > proposals[j].Confidence
	})
	if max := d.cfg.GetDetectorMaxResults(); len(proposals) > max {
		proposals = proposals[:max]
	}
	return proposals
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minDim(r r2.Rect) float64 {
	return math.Min(r.X.Length(), r.Y.Length())
}

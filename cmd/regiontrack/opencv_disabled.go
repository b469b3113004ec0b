//go:build !opencv

package main

import (
	"fmt"

	"github.com/keyframe-systems/regiontrack/internal/track"
)

func newOpenCVTracker() (track.Tracker, func(), error) {
	return nil, func() {}, fmt.Errorf("%w: rebuild with -tags opencv", track.ErrCapabilityUnavailable)
}

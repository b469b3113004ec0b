//go:build opencv

package main

import (
	"log"

	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/vision/opencv"
)

func newOpenCVTracker() (track.Tracker, func(), error) {
	t := opencv.NewTracker()
	cleanup := func() {
		if err := t.Close(); err != nil {
			log.Printf("close opencv tracker: %v", err)
		}
	}
	return t, cleanup, nil
}

// Package config loads and validates tuning parameters for the
// tracking pipeline. Fields are pointers so that partial JSON configs
// are safe: anything omitted falls back to the documented default via
// the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/config endpoint so the same JSON can be
// used for both startup configuration and runtime inspection.
type TuningConfig struct {
	// Template tracker params
	SearchRadius         *float64 `json:"search_radius,omitempty"`          // normalized search window around the seed
	MinMatchScore        *float64 `json:"min_match_score,omitempty"`        // below this the region reports no result
	TemplateRefreshScore *float64 `json:"template_refresh_score,omitempty"` // above this the template is re-captured
	FastDownscale        *int     `json:"fast_downscale,omitempty"`         // downscale factor for fast precision

	// Rectangle detector params
	DetectorMinAspect       *float64 `json:"detector_min_aspect,omitempty"`
	DetectorMaxAspect       *float64 `json:"detector_max_aspect,omitempty"`
	DetectorMinSize         *float64 `json:"detector_min_size,omitempty"` // fraction of the frame's short side
	DetectorMaxResults      *int     `json:"detector_max_results,omitempty"`
	DetectorEnergyThreshold *float64 `json:"detector_energy_threshold,omitempty"` // multiple of mean gradient energy
	DetectorGridSize        *int     `json:"detector_grid_size,omitempty"`        // analysis cells per axis

	// Session params
	Pacing            *bool `json:"pacing,omitempty"`
	ObserverQueueSize *int  `json:"observer_queue_size,omitempty"`

	// Frame source params
	FrameRate  *float64 `json:"frame_rate,omitempty"` // nominal frames per second
	FFmpegPath *string  `json:"ffmpeg_path,omitempty"`

	// Storage params
	DBPath         *string `json:"db_path,omitempty"`
	ObservationTTL *string `json:"observation_ttl,omitempty"` // duration string like "720h"

	// API params
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* accessors then return every default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under the max file size. Fields omitted
// from the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the current directory.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that configured values are in their valid ranges.
func (c *TuningConfig) Validate() error {
	if c.SearchRadius != nil && (*c.SearchRadius <= 0 || *c.SearchRadius > 0.5) {
		return fmt.Errorf("search_radius must be in (0, 0.5], got %f", *c.SearchRadius)
	}
	if c.MinMatchScore != nil && (*c.MinMatchScore < 0 || *c.MinMatchScore > 1) {
		return fmt.Errorf("min_match_score must be between 0 and 1, got %f", *c.MinMatchScore)
	}
	if c.TemplateRefreshScore != nil && (*c.TemplateRefreshScore < 0 || *c.TemplateRefreshScore > 1) {
		return fmt.Errorf("template_refresh_score must be between 0 and 1, got %f", *c.TemplateRefreshScore)
	}
	if c.FastDownscale != nil && *c.FastDownscale < 1 {
		return fmt.Errorf("fast_downscale must be >= 1, got %d", *c.FastDownscale)
	}
	if c.DetectorMinAspect != nil && (*c.DetectorMinAspect <= 0 || *c.DetectorMinAspect > 1) {
		return fmt.Errorf("detector_min_aspect must be in (0, 1], got %f", *c.DetectorMinAspect)
	}
	if c.DetectorMaxAspect != nil && (*c.DetectorMaxAspect <= 0 || *c.DetectorMaxAspect > 1) {
		return fmt.Errorf("detector_max_aspect must be in (0, 1], got %f", *c.DetectorMaxAspect)
	}
	if c.DetectorMinAspect != nil && c.DetectorMaxAspect != nil && *c.DetectorMinAspect > *c.DetectorMaxAspect {
		return fmt.Errorf("detector_min_aspect %f exceeds detector_max_aspect %f",
			*c.DetectorMinAspect, *c.DetectorMaxAspect)
	}
	if c.DetectorMinSize != nil && (*c.DetectorMinSize <= 0 || *c.DetectorMinSize > 1) {
		return fmt.Errorf("detector_min_size must be in (0, 1], got %f", *c.DetectorMinSize)
	}
	if c.DetectorMaxResults != nil && *c.DetectorMaxResults < 1 {
		return fmt.Errorf("detector_max_results must be >= 1, got %d", *c.DetectorMaxResults)
	}
	if c.DetectorEnergyThreshold != nil && *c.DetectorEnergyThreshold <= 0 {
		return fmt.Errorf("detector_energy_threshold must be positive, got %f", *c.DetectorEnergyThreshold)
	}
	if c.DetectorGridSize != nil && *c.DetectorGridSize < 4 {
		return fmt.Errorf("detector_grid_size must be >= 4, got %d", *c.DetectorGridSize)
	}
	if c.ObserverQueueSize != nil && *c.ObserverQueueSize < 1 {
		return fmt.Errorf("observer_queue_size must be >= 1, got %d", *c.ObserverQueueSize)
	}
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	if c.ObservationTTL != nil && *c.ObservationTTL != "" {
		if _, err := time.ParseDuration(*c.ObservationTTL); err != nil {
			return fmt.Errorf("invalid observation_ttl '%s': %w", *c.ObservationTTL, err)
		}
	}
	return nil
}

// GetSearchRadius returns the search_radius value or the default.
func (c *TuningConfig) GetSearchRadius() float64 {
	if c.SearchRadius == nil {
		return 0.1
	}
	return *c.SearchRadius
}

// GetMinMatchScore returns the min_match_score value or the default.
func (c *TuningConfig) GetMinMatchScore() float64 {
	if c.MinMatchScore == nil {
		return 0.45
	}
	return *c.MinMatchScore
}

// GetTemplateRefreshScore returns the template_refresh_score value or the default.
func (c *TuningConfig) GetTemplateRefreshScore() float64 {
	if c.TemplateRefreshScore == nil {
		return 0.8
	}
	return *c.TemplateRefreshScore
}

// GetFastDownscale returns the fast_downscale value or the default.
func (c *TuningConfig) GetFastDownscale() int {
	if c.FastDownscale == nil {
		return 2
	}
	return *c.FastDownscale
}

// GetDetectorMinAspect returns the detector_min_aspect value or the default.
func (c *TuningConfig) GetDetectorMinAspect() float64 {
	if c.DetectorMinAspect == nil {
		return 0.2
	}
	return *c.DetectorMinAspect
}

// GetDetectorMaxAspect returns the detector_max_aspect value or the default.
func (c *TuningConfig) GetDetectorMaxAspect() float64 {
	if c.DetectorMaxAspect == nil {
		return 1.0
	}
	return *c.DetectorMaxAspect
}

// GetDetectorMinSize returns the detector_min_size value or the default.
func (c *TuningConfig) GetDetectorMinSize() float64 {
	if c.DetectorMinSize == nil {
		return 0.1
	}
	return *c.DetectorMinSize
}

// GetDetectorMaxResults returns the detector_max_results value or the default.
func (c *TuningConfig) GetDetectorMaxResults() int {
	if c.DetectorMaxResults == nil {
		return 10
	}
	return *c.DetectorMaxResults
}

// GetDetectorEnergyThreshold returns the detector_energy_threshold value or the default.
func (c *TuningConfig) GetDetectorEnergyThreshold() float64 {
	if c.DetectorEnergyThreshold == nil {
		return 1.5
	}
	return *c.DetectorEnergyThreshold
}

// GetDetectorGridSize returns the detector_grid_size value or the default.
func (c *TuningConfig) GetDetectorGridSize() int {
	if c.DetectorGridSize == nil {
		return 32
	}
	return *c.DetectorGridSize
}

// GetPacing returns the pacing value or the default.
func (c *TuningConfig) GetPacing() bool {
	if c.Pacing == nil {
		return true
	}
	return *c.Pacing
}

// GetObserverQueueSize returns the observer_queue_size value or the default.
func (c *TuningConfig) GetObserverQueueSize() int {
	if c.ObserverQueueSize == nil {
		return 64
	}
	return *c.ObserverQueueSize
}

// GetFrameRate returns the frame_rate value or the default.
func (c *TuningConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 30.0
	}
	return *c.FrameRate
}

// GetFrameInterval returns the nominal frame interval derived from the
// frame rate.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.GetFrameRate())
}

// GetFFmpegPath returns the ffmpeg_path value or the default.
func (c *TuningConfig) GetFFmpegPath() string {
	if c.FFmpegPath == nil || *c.FFmpegPath == "" {
		return "ffmpeg"
	}
	return *c.FFmpegPath
}

// GetDBPath returns the db_path value or the default.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "regiontrack.db"
	}
	return *c.DBPath
}

// GetObservationTTL parses and returns the ObservationTTL as a time.Duration.
func (c *TuningConfig) GetObservationTTL() time.Duration {
	if c.ObservationTTL == nil || *c.ObservationTTL == "" {
		return 30 * 24 * time.Hour
	}
	d, err := time.ParseDuration(*c.ObservationTTL)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// GetListenAddr returns the listen_addr value or the default.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// Package vision provides the default pure-Go tracking and detection
// capabilities: a normalized cross-correlation template tracker that
// relocates regions around their seeds, and a gradient-energy detector
// that proposes rectangular regions on a single frame.
//
// Both read tuning parameters from config.TuningConfig. Alternative
// capabilities live in the opencv and ollama subpackages.
package vision

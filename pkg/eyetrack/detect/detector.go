// Package detect provides pluggable pupil-center detectors backed by
// OpenCV. Each detector takes a grayscale eye frame and estimates the
// pupil center, returning a diagnostic frame for on-screen preview.
package detect

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Algorithm identifies one of the supported detector engines.
type Algorithm int

const (
	Edge    Algorithm = iota // surround-feature response on the darkest region
	Hybrid                   // edge seed refined by a local blob pass
	Model3D                  // contour + ellipse fit
	Blob                     // threshold + largest contour
)

// String returns the algorithm's short name.
func (a Algorithm) String() string {
	switch a {
	case Edge:
		return "edge"
	case Hybrid:
		return "hybrid"
	case Model3D:
		return "model3d"
	case Blob:
		return "blob"
	default:
		return "unknown"
	}
}

// Outcome reports whether a detector call located a pupil. Nothing
// consumes it yet; it is the seam for feeding detection success back
// into scheduling.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeHit
	OutcomeMiss
)

// Result is the unified return shape of every detector.
//
// When Found is false the coordinates are meaningless; callers emit
// the reserved (0, 0) sentinel instead of forwarding them. Gray, when
// non-nil, replaces the caller's working grayscale frame (some engines
// return a cropped view of the region they settled on). The caller
// owns Diagnostic and Gray and closes them.
type Result struct {
	X, Y       float64
	Found      bool
	Outcome    Outcome
	Diagnostic gocv.Mat
	Gray       *gocv.Mat
}

// Detector is the interface for pupil detection engines.
//
// Engines that accumulate internal state (radius estimates, adaptive
// thresholds) are resolution-dependent: they must be constructed for a
// fixed frame size and discarded when that size changes or the
// algorithm is re-enabled after being disabled.
type Detector interface {
	// Detect estimates the pupil center in the grayscale frame.
	Detect(gray gocv.Mat) (Result, error)

	// Close releases resources.
	Close() error
}

// Config holds detector construction parameters.
type Config struct {
	Width       int     // active frame width in pixels
	Height      int     // active frame height in pixels
	FocalLength float64 // camera focal length

	Threshold      float64 // binarization threshold for blob-style engines
	Radius         int     // initial pupil radius estimate in pixels
	SkipAutoRadius bool    // freeze Radius instead of adapting it
}

// DefaultConfig returns production defaults for a given frame size.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:       width,
		Height:      height,
		FocalLength: 30,
		Threshold:   65,
		Radius:      15,
	}
}

// New constructs the detector engine for an algorithm.
func New(algo Algorithm, cfg Config) (Detector, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("detect: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	switch algo {
	case Edge:
		return NewEdge(cfg), nil
	case Hybrid:
		return NewHybrid(cfg), nil
	case Model3D:
		return NewModel3D(cfg), nil
	case Blob:
		return NewBlob(cfg), nil
	default:
		return nil, fmt.Errorf("detect: unknown algorithm %d", algo)
	}
}

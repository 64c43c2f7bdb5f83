package eyetrack

import (
	"fmt"
	"sync"
)

// AlgorithmConfig enables one detector and ranks it.
type AlgorithmConfig struct {
	Enabled  bool
	Priority int // 1 (highest) to 4
}

// Config is the tracker configuration surface. The UI mutates it at
// any time through a ConfigStore; the worker reads one snapshot per
// tick. Consistency across fields between two Set calls is not
// guaranteed and the worker tolerates torn combinations: a crop that
// no longer fits is an ordinary preprocessing failure.
type Config struct {
	// Region of interest within the captured frame, in pixels.
	ROIX int
	ROIY int
	ROIW int
	ROIH int

	// RotationAngle is applied to the cropped frame, in degrees.
	RotationAngle float64

	// FocalLength of the eye camera, used by model-based detectors.
	FocalLength float64

	// Per-algorithm enable flags and priority ranks.
	Edge    AlgorithmConfig
	Hybrid  AlgorithmConfig
	Model3D AlgorithmConfig
	Blob    AlgorithmConfig

	// Smoothing filter parameters, kept as strings because they arrive
	// from UI text fields. Malformed values fall back to safe defaults
	// when the worker starts.
	MinCutoff        string
	SpeedCoefficient string
}

// DefaultConfig returns the recommended tracker configuration.
func DefaultConfig() Config {
	return Config{
		// ROI starts unconfigured; the worker idles until the UI draws one.
		ROIW: 0,
		ROIH: 0,

		RotationAngle: 0,
		FocalLength:   30,

		// Blob is the least demanding detector, enabled by default.
		Blob: AlgorithmConfig{Enabled: true, Priority: 1},

		// One-euro filter defaults
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
}

// Validate returns a list of problems with the configuration.
// An unconfigured ROI is not a problem; it just idles the worker.
func (c Config) Validate() []string {
	var errors []string
	if c.ROIW < 0 || c.ROIH < 0 {
		errors = append(errors, "roi dimensions must not be negative")
	}
	if c.ROIX < 0 || c.ROIY < 0 {
		errors = append(errors, "roi position must not be negative")
	}
	for _, a := range []struct {
		name string
		cfg  AlgorithmConfig
	}{
		{"edge", c.Edge},
		{"hybrid", c.Hybrid},
		{"model3d", c.Model3D},
		{"blob", c.Blob},
	} {
		if a.cfg.Enabled && (a.cfg.Priority < 1 || a.cfg.Priority > 4) {
			errors = append(errors, fmt.Sprintf("%s priority must be 1-4, got %d", a.name, a.cfg.Priority))
		}
	}
	return errors
}

// ConfigStore holds the current tracker configuration and hands out
// copies. The worker calls Get once per tick; the UI calls Set
// whenever a control changes. Individual snapshots are always
// internally consistent, which is all the worker requires.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg Config
}

// NewConfigStore creates a store seeded with the given configuration.
func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current configuration.
func (s *ConfigStore) Set(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Update applies a mutation to the current configuration under the
// store lock, so read-modify-write sequences from the UI do not race
// each other.
func (s *ConfigStore) Update(fn func(*Config)) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	fn(&cfg)
	return s.Set(cfg)
}

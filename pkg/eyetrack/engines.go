package eyetrack

import (
	"github.com/irisware/gazepipe/internal/log"
	"github.com/irisware/gazepipe/pkg/eyetrack/detect"
)

// engineSet manages the lazy lifecycle of detector engines. Engines
// are constructed the first time their algorithm is enabled, torn down
// the moment it is disabled, and all rebuilt when the active resolution
// changes, since their internal state is resolution-dependent.
//
// Only the worker goroutine mutates an engineSet, so no locking.
type engineSet struct {
	detectors map[detect.Algorithm]detect.Detector
	width     int
	height    int
}

func newEngineSet() *engineSet {
	return &engineSet{detectors: make(map[detect.Algorithm]detect.Detector)}
}

// sync reconciles constructed engines with the configuration snapshot.
func (e *engineSet) sync(cfg Config) {
	if cfg.ROIW != e.width || cfg.ROIH != e.height {
		// Resolution changed: radius estimates and trackers inside the
		// engines are stale, discard everything.
		if len(e.detectors) > 0 {
			log.Info("resolution changed, rebuilding detector engines",
				"width", cfg.ROIW, "height", cfg.ROIH)
		}
		e.closeAll()
		e.width = cfg.ROIW
		e.height = cfg.ROIH
	}

	entries := []struct {
		algo detect.Algorithm
		cfg  AlgorithmConfig
	}{
		{detect.Edge, cfg.Edge},
		{detect.Hybrid, cfg.Hybrid},
		{detect.Model3D, cfg.Model3D},
		{detect.Blob, cfg.Blob},
	}

	for _, entry := range entries {
		constructed := e.detectors[entry.algo] != nil
		switch {
		case entry.cfg.Enabled && !constructed:
			dcfg := detect.DefaultConfig(e.width, e.height)
			dcfg.FocalLength = cfg.FocalLength
			d, err := detect.New(entry.algo, dcfg)
			if err != nil {
				log.Warn("detector construction failed", "algorithm", entry.algo.String(), "error", err)
				continue
			}
			e.detectors[entry.algo] = d
		case !entry.cfg.Enabled && constructed:
			e.detectors[entry.algo].Close()
			delete(e.detectors, entry.algo)
		}
	}
}

// get returns the constructed engine for an algorithm, or nil.
func (e *engineSet) get(a detect.Algorithm) detect.Detector {
	return e.detectors[a]
}

func (e *engineSet) closeAll() {
	for a, d := range e.detectors {
		d.Close()
		delete(e.detectors, a)
	}
}

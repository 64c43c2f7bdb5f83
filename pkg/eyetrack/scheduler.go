package eyetrack

import (
	"github.com/irisware/gazepipe/pkg/eyetrack/detect"
)

// slotEmpty marks an unoccupied priority slot.
const slotEmpty detect.Algorithm = -1

// slotTable is the priority-indexed detector selection: slot 0 holds
// the algorithm configured at priority 1, and so on.
type slotTable [4]detect.Algorithm

// buildSlots derives the slot table from a configuration snapshot.
// Assignment order is fixed (edge, hybrid, model3d, blob); when two
// enabled algorithms share a priority the later one overwrites the
// earlier. That is the contract, not a configuration error.
func buildSlots(cfg Config) slotTable {
	t := slotTable{slotEmpty, slotEmpty, slotEmpty, slotEmpty}
	assign := func(ac AlgorithmConfig, a detect.Algorithm) {
		if ac.Enabled && ac.Priority >= 1 && ac.Priority <= 4 {
			t[ac.Priority-1] = a
		}
	}
	assign(cfg.Edge, detect.Edge)
	assign(cfg.Hybrid, detect.Hybrid)
	assign(cfg.Model3D, detect.Model3D)
	assign(cfg.Blob, detect.Blob)
	return t
}

// occupied reports whether any slot holds an algorithm.
func (t slotTable) occupied() bool {
	for _, a := range t {
		if a != slotEmpty {
			return true
		}
	}
	return false
}

// cascade is the priority scheduler's counter state, persisted across
// ticks.
type cascade struct {
	f int // 0..3
}

// Tick runs the per-tick transition: four sequential checks, each
// either invoking its slot's algorithm (leaving the counter unchanged)
// or advancing the counter past the empty slot, with the final check
// resetting to zero. All four checks execute every tick, so exactly
// the highest-priority occupied slot is invoked and the counter ends
// any terminal tick back at zero.
//
// The invoke callback returns a detect.Outcome; nothing feeds it back
// into the counter in the current contract, so selection stays static
// per configuration. The seam exists for a future dynamic failover.
func (c *cascade) Tick(slots slotTable, invoke func(detect.Algorithm) detect.Outcome) {
	if c.f == 0 && slots[0] != slotEmpty {
		invoke(slots[0])
	} else {
		c.f++
	}

	if c.f == 1 && slots[1] != slotEmpty {
		invoke(slots[1])
	} else {
		c.f++
	}

	if c.f == 2 && slots[2] != slotEmpty {
		invoke(slots[2])
	} else {
		c.f++
	}

	if c.f == 3 && slots[3] != slotEmpty {
		invoke(slots[3])
		c.f = 0
	} else {
		// Last possible slot is empty too; wrap back to the first.
		c.f = 0
	}
}

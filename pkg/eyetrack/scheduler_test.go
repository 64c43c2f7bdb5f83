package eyetrack

import (
	"testing"

	"github.com/irisware/gazepipe/pkg/eyetrack/detect"
)

func enabled(p int) AlgorithmConfig {
	return AlgorithmConfig{Enabled: true, Priority: p}
}

func TestBuildSlots_AllCombinations(t *testing.T) {
	// Every enable combination with distinct priorities must place each
	// enabled algorithm at its configured slot and leave the rest empty.
	for mask := 0; mask < 16; mask++ {
		cfg := Config{}
		expect := slotTable{slotEmpty, slotEmpty, slotEmpty, slotEmpty}

		if mask&1 != 0 {
			cfg.Edge = enabled(1)
			expect[0] = detect.Edge
		}
		if mask&2 != 0 {
			cfg.Hybrid = enabled(2)
			expect[1] = detect.Hybrid
		}
		if mask&4 != 0 {
			cfg.Model3D = enabled(3)
			expect[2] = detect.Model3D
		}
		if mask&8 != 0 {
			cfg.Blob = enabled(4)
			expect[3] = detect.Blob
		}

		got := buildSlots(cfg)
		if got != expect {
			t.Errorf("mask %04b: slots = %v, want %v", mask, got, expect)
		}
	}
}

func TestBuildSlots_CollisionLastWriterWins(t *testing.T) {
	// Same priority: assignment order is edge, hybrid, model3d, blob,
	// and the later assignment overwrites the earlier.
	cfg := Config{
		Edge: enabled(1),
		Blob: enabled(1),
	}
	got := buildSlots(cfg)
	if got[0] != detect.Blob {
		t.Errorf("slot 1 = %v, want blob (later writer wins)", got[0])
	}

	cfg = Config{
		Edge:   enabled(2),
		Hybrid: enabled(2),
	}
	got = buildSlots(cfg)
	if got[1] != detect.Hybrid {
		t.Errorf("slot 2 = %v, want hybrid (later writer wins)", got[1])
	}

	cfg = Config{
		Hybrid:  enabled(3),
		Model3D: enabled(3),
	}
	got = buildSlots(cfg)
	if got[2] != detect.Model3D {
		t.Errorf("slot 3 = %v, want model3d (later writer wins)", got[2])
	}
}

func TestBuildSlots_DisabledExcluded(t *testing.T) {
	cfg := Config{
		Edge: AlgorithmConfig{Enabled: false, Priority: 1},
		Blob: enabled(2),
	}
	got := buildSlots(cfg)
	if got[0] != slotEmpty {
		t.Errorf("slot 1 = %v, want empty for disabled algorithm", got[0])
	}
	if got[1] != detect.Blob {
		t.Errorf("slot 2 = %v, want blob", got[1])
	}
}

func TestCascade_InvokesHighestOccupiedSlot(t *testing.T) {
	cases := []struct {
		name  string
		slots slotTable
		want  detect.Algorithm
	}{
		{"slot1", slotTable{detect.Edge, detect.Blob, slotEmpty, slotEmpty}, detect.Edge},
		{"slot2", slotTable{slotEmpty, detect.Blob, detect.Model3D, slotEmpty}, detect.Blob},
		{"slot3", slotTable{slotEmpty, slotEmpty, detect.Model3D, detect.Blob}, detect.Model3D},
		{"slot4", slotTable{slotEmpty, slotEmpty, slotEmpty, detect.Blob}, detect.Blob},
	}

	for _, tc := range cases {
		var c cascade
		// Run several ticks: selection must be identical every tick and
		// the counter must end every tick at zero.
		for tick := 0; tick < 5; tick++ {
			var invoked []detect.Algorithm
			c.Tick(tc.slots, func(a detect.Algorithm) detect.Outcome {
				invoked = append(invoked, a)
				return detect.OutcomeHit
			})
			if len(invoked) != 1 {
				t.Fatalf("%s tick %d: %d invocations, want 1", tc.name, tick, len(invoked))
			}
			if invoked[0] != tc.want {
				t.Errorf("%s tick %d: invoked %v, want %v", tc.name, tick, invoked[0], tc.want)
			}
			if c.f != 0 {
				t.Errorf("%s tick %d: counter = %d, want 0 at end of tick", tc.name, tick, c.f)
			}
		}
	}
}

func TestCascade_AllSlotsEmpty(t *testing.T) {
	var c cascade
	empty := slotTable{slotEmpty, slotEmpty, slotEmpty, slotEmpty}

	for tick := 0; tick < 3; tick++ {
		calls := 0
		c.Tick(empty, func(detect.Algorithm) detect.Outcome {
			calls++
			return detect.OutcomeHit
		})
		if calls != 0 {
			t.Errorf("tick %d: %d invocations with empty table, want 0", tick, calls)
		}
		if c.f != 0 {
			t.Errorf("tick %d: counter = %d, want 0", tick, c.f)
		}
	}
}

func TestCascade_IndependentOfOutcome(t *testing.T) {
	// Detector results must not influence selection: a miss on the
	// primary slot still selects the primary next tick.
	slots := slotTable{detect.Edge, detect.Blob, slotEmpty, slotEmpty}
	var c cascade

	for tick := 0; tick < 4; tick++ {
		var got detect.Algorithm = slotEmpty
		c.Tick(slots, func(a detect.Algorithm) detect.Outcome {
			got = a
			return detect.OutcomeMiss
		})
		if got != detect.Edge {
			t.Errorf("tick %d: invoked %v after misses, want edge", tick, got)
		}
	}
}

package eyetrack

import (
	"math"
	"strconv"
	"time"

	"github.com/irisware/gazepipe/internal/log"
)

// Safe defaults applied when the configured filter parameters do not
// parse as numbers.
const (
	defaultMinCutoff = 0.0004
	defaultBeta      = 0.9
)

// ParseFilterParams parses the smoothing parameters from their raw
// string form, falling back to the safe defaults on malformed input.
func ParseFilterParams(minCutoff, speedCoefficient string) (float64, float64) {
	mc, err1 := strconv.ParseFloat(minCutoff, 64)
	beta, err2 := strconv.ParseFloat(speedCoefficient, 64)
	if err1 != nil || err2 != nil {
		log.Warn("smoothing filter values must be legal numbers, using defaults",
			"min_cutoff", minCutoff, "speed_coefficient", speedCoefficient)
		return defaultMinCutoff, defaultBeta
	}
	return mc, beta
}

// OneEuroFilter is a speed-adaptive low-pass filter over a 2D point
// stream. A low MinCutoff suppresses jitter while the point is still;
// Beta raises the cutoff with movement speed so fast saccades pass
// through with little lag.
type OneEuroFilter struct {
	minCutoff float64
	beta      float64
	dCutoff   float64

	x, y   float64
	dx, dy float64
	last   time.Time
	primed bool
}

// NewOneEuroFilter creates a filter with the given tuning.
func NewOneEuroFilter(minCutoff, beta float64) *OneEuroFilter {
	if minCutoff <= 0 {
		minCutoff = defaultMinCutoff
	}
	return &OneEuroFilter{
		minCutoff: minCutoff,
		beta:      beta,
		dCutoff:   1.0,
	}
}

// Filter smooths one sample. The first sample passes through
// unchanged and primes the state.
func (f *OneEuroFilter) Filter(x, y float64) (float64, float64) {
	now := time.Now()
	if !f.primed {
		f.x, f.y = x, y
		f.last = now
		f.primed = true
		return x, y
	}

	dt := now.Sub(f.last).Seconds()
	f.last = now
	if dt <= 0 {
		return f.x, f.y
	}

	// Derivative estimate, smoothed at a fixed cutoff.
	ad := smoothingFactor(dt, f.dCutoff)
	dx := (x - f.x) / dt
	dy := (y - f.y) / dt
	f.dx = lerp(ad, dx, f.dx)
	f.dy = lerp(ad, dy, f.dy)

	// Cutoff rises with speed.
	speed := math.Hypot(f.dx, f.dy)
	cutoff := f.minCutoff + f.beta*speed
	a := smoothingFactor(dt, cutoff)
	f.x = lerp(a, x, f.x)
	f.y = lerp(a, y, f.y)

	return f.x, f.y
}

func smoothingFactor(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

func lerp(a, fresh, prev float64) float64 {
	return a*fresh + (1-a)*prev
}

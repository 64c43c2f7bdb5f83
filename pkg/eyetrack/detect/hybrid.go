package detect

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// HybridDetector seeds with the edge detector's coarse response, then
// refines inside a cropped window with a blob pass. It returns the
// cropped window as a replacement grayscale frame, so downstream
// consumers see the region it settled on.
type HybridDetector struct {
	config Config
	edge   *EdgeDetector
	blob   *BlobDetector
	mu     sync.Mutex
}

// NewHybrid creates a hybrid detector for the given frame size.
func NewHybrid(cfg Config) *HybridDetector {
	return &HybridDetector{
		config: cfg,
		edge:   NewEdge(cfg),
		blob:   NewBlob(cfg),
	}
}

// Detect runs the coarse pass, crops around the seed, and refines.
func (d *HybridDetector) Detect(gray gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seed, err := d.edge.Detect(gray)
	if err != nil {
		return Result{}, err
	}
	if !seed.Found {
		return seed, nil
	}
	seed.Diagnostic.Close()

	// Crop a window around the seed, clamped to the frame.
	r := int(d.edge.radius) * 3
	if r < 16 {
		r = 16
	}
	win := image.Rect(int(seed.X)-r, int(seed.Y)-r, int(seed.X)+r, int(seed.Y)+r)
	win = win.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if win.Empty() {
		thresh := gocv.NewMat()
		gocv.Threshold(gray, &thresh, float32(d.config.Threshold), 255, gocv.ThresholdBinaryInv)
		return Result{Outcome: OutcomeMiss, Diagnostic: thresh}, nil
	}

	region := gray.Region(win)
	crop := region.Clone()
	region.Close()

	refined, err := d.blob.Detect(crop)
	if err != nil {
		crop.Close()
		return Result{}, err
	}

	if !refined.Found {
		// Keep the coarse estimate, mapped into window space.
		refined.X = seed.X - float64(win.Min.X)
		refined.Y = seed.Y - float64(win.Min.Y)
		refined.Found = true
		refined.Outcome = OutcomeHit
	}

	// Coordinates and diagnostic already live in window space; hand the
	// window back as the new working grayscale frame.
	refined.Gray = &crop
	return refined, nil
}

// Close releases the detector resources.
func (d *HybridDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edge.Close()
	return d.blob.Close()
}

package eyetrack

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/irisware/gazepipe/internal/log"
)

// ErrNoUsableFrame means the current frame could not be cropped and no
// previous accepted frame exists to fall back on. The tick is skipped.
var ErrNoUsableFrame = errors.New("eyetrack: no usable frame")

// borderGray fills pixels introduced at the rotated border. Neutral
// gray rather than white or black, so brightness-based detectors are
// not biased toward the corners.
var borderGray = color.RGBA{R: 64, G: 64, B: 64}

// preprocessor crops incoming frames to the ROI, rotates them about
// their center, and derives grayscale working copies. It retains the
// last accepted frame so a failed crop can fall back to it.
type preprocessor struct {
	prev         gocv.Mat // last accepted color frame, already cropped and rotated
	hasPrev      bool
	prevRotation float64
}

func newPreprocessor() *preprocessor {
	return &preprocessor{}
}

// process produces the stabilized color frame, its grayscale working
// copy, and a clean grayscale copy reserved for blink analysis.
// Detectors may replace the working grayscale buffer; the clean copy
// must never be handed to them. All three returned Mats are owned by
// the caller. On ErrNoUsableFrame nothing is returned and the tick
// must be skipped.
func (p *preprocessor) process(frame gocv.Mat, cfg Config) (colorFrame, gray, grayClean gocv.Mat, err error) {
	roi := image.Rect(cfg.ROIX, cfg.ROIY, cfg.ROIX+cfg.ROIW, cfg.ROIY+cfg.ROIH)

	var work gocv.Mat
	if cropOK(frame, roi) {
		region := frame.Region(roi)
		work = region.Clone()
		region.Close()
	} else if p.hasPrev {
		// Torn config or a bad capture; reuse the previous frame. The
		// fallback already carries its own rotation, so report both
		// angles for anyone diagnosing a doubly rotated preview.
		log.Warn("frame capture issue detected, reusing previous frame",
			"prev_rotation", p.prevRotation, "rotation", cfg.RotationAngle)
		work = p.prev.Clone()
	} else {
		return gocv.Mat{}, gocv.Mat{}, gocv.Mat{}, ErrNoUsableFrame
	}

	rows, cols := work.Rows(), work.Cols()
	center := image.Pt(cols/2, rows/2)
	rotation := gocv.GetRotationMatrix2D(center, cfg.RotationAngle, 1)
	defer rotation.Close()

	rotated := gocv.NewMat()
	gocv.WarpAffineWithParams(work, &rotated, rotation, image.Pt(cols, rows),
		gocv.InterpolationLinear, gocv.BorderConstant, borderGray)
	work.Close()

	gray = gocv.NewMat()
	gocv.CvtColor(rotated, &gray, gocv.ColorBGRToGray)

	// Detectors are allowed to mutate or replace the grayscale buffer
	// they are given, so blink analysis gets its own copy.
	grayClean = gray.Clone()

	return rotated, gray, grayClean, nil
}

// accept records a successfully published frame for future fallback.
func (p *preprocessor) accept(frame gocv.Mat, rotation float64) {
	if p.hasPrev {
		p.prev.Close()
	}
	p.prev = frame.Clone()
	p.hasPrev = true
	p.prevRotation = rotation
}

func (p *preprocessor) close() {
	if p.hasPrev {
		p.prev.Close()
		p.hasPrev = false
	}
}

// cropOK reports whether the ROI can be sliced out of the frame.
func cropOK(frame gocv.Mat, roi image.Rectangle) bool {
	if frame.Empty() || roi.Dx() <= 0 || roi.Dy() <= 0 {
		return false
	}
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	return roi.In(bounds)
}

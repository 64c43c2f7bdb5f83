// Package eyetrack implements the per-eye real-time tracking pipeline:
// a frame-processing worker that crops and rotates incoming camera
// frames, runs one of four interchangeable pupil detectors per tick,
// calibrates and smooths the result, and publishes a unified gaze
// record together with a side-by-side diagnostic image.
package eyetrack

import (
	"gocv.io/x/gocv"

	"github.com/irisware/gazepipe/pkg/eyetrack/detect"
)

// EyeID identifies which eye a tracker is processing.
type EyeID string

const (
	EyeLeft  EyeID = "left"
	EyeRight EyeID = "right"
)

// Frame is one captured camera frame delivered by the producer.
// Ownership of Image transfers to the tracker once the frame is
// dequeued; the tracker closes it.
type Frame struct {
	Image gocv.Mat // BGR color frame
	Index int      // monotonic capture index
	FPS   float64  // capture rate reported by the source
}

// Origin tags which detector produced a gaze record.
type Origin int

const (
	OriginFailure Origin = iota // no pupil found this tick
	OriginEdge                  // edge/surround-feature detector
	OriginHybrid                // hybrid detector
	OriginModel3D               // ellipse-fit / 3D-model detector
	OriginBlob                  // blob detector
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginEdge:
		return "edge"
	case OriginHybrid:
		return "hybrid"
	case OriginModel3D:
		return "model3d"
	case OriginBlob:
		return "blob"
	default:
		return "failure"
	}
}

// originOf maps a detector algorithm to its record origin.
func originOf(a detect.Algorithm) Origin {
	switch a {
	case detect.Edge:
		return OriginEdge
	case detect.Hybrid:
		return OriginHybrid
	case detect.Model3D:
		return OriginModel3D
	case detect.Blob:
		return OriginBlob
	default:
		return OriginFailure
	}
}

// GazeRecord is one tick's tracking result. Immutable once emitted.
//
// A record with Blink=true carries no meaningful X/Y and must not be
// consumed as a gaze sample. A record with Origin=OriginFailure carries
// the reserved (0, 0) coordinate and is a marker, not a sample.
type GazeRecord struct {
	Origin   Origin
	X        float64 // calibrated gaze position, unit range
	Y        float64
	Dilation int // reserved, always 0 in the current contract
	Blink    bool
}

// Output pairs a gaze record with its diagnostic image: the working
// grayscale frame and the detector's visualization, side by side.
// The consumer owns Image and closes it.
type Output struct {
	Image  gocv.Mat
	Record GazeRecord
}

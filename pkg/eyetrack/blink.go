package eyetrack

import (
	"image"

	"gocv.io/x/gocv"
)

// blinkWarmup is how many frames the classifier observes before it
// starts calling blinks; the running extrema need history first.
const blinkWarmup = 60

// blinkClassifier decides open versus closed eye from frame intensity.
// A closed lid covers the dark pupil, so the region around the pupil
// estimate gets markedly brighter. The classifier keeps running
// intensity extrema and flags a blink when the current intensity sits
// near the bright end of the observed span.
type blinkClassifier struct {
	maxIntensity float64
	minIntensity float64
	frames       int
}

func newBlinkClassifier() *blinkClassifier {
	return &blinkClassifier{minIntensity: 4e12}
}

// classify reports whether the eye looks closed in the clean grayscale
// frame. (x, y) is the detector's pupil estimate; with no estimate the
// whole frame is sampled.
func (b *blinkClassifier) classify(gray gocv.Mat, x, y float64, found bool) bool {
	intensity := b.sample(gray, x, y, found)

	if intensity > b.maxIntensity {
		b.maxIntensity = intensity
	}
	if intensity < b.minIntensity {
		b.minIntensity = intensity
	}

	b.frames++
	if b.frames < blinkWarmup {
		return false
	}

	span := b.maxIntensity - b.minIntensity
	if span < 1 {
		return false
	}
	return intensity > b.minIntensity+span*0.85
}

func (b *blinkClassifier) sample(gray gocv.Mat, x, y float64, found bool) float64 {
	if found {
		r := 10
		rect := image.Rect(int(x)-r, int(y)-r, int(x)+r, int(y)+r)
		rect = rect.Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
		if !rect.Empty() {
			region := gray.Region(rect)
			mean := region.Mean()
			region.Close()
			return mean.Val1
		}
	}
	return gray.Mean().Val1
}

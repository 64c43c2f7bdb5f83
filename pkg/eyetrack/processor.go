package eyetrack

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/irisware/gazepipe/internal/log"
	"github.com/irisware/gazepipe/pkg/eyetrack/detect"
)

const (
	// frameWait bounds the blocking wait for the next frame.
	frameWait = 200 * time.Millisecond

	// roiPoll is the idle sleep while the ROI is unconfigured, short
	// enough to stay responsive to cancellation.
	roiPoll = 100 * time.Millisecond
)

// Processor is the per-eye tracking worker. It consumes frames from
// the inbound channel, runs the configured detector cascade, and
// publishes diagnostic images and gaze records on the outbound
// channel. Run drives it on its own goroutine; all runtime state is
// owned by that goroutine.
type Processor struct {
	eye   EyeID
	store *ConfigStore

	in    <-chan Frame
	out   chan<- Output
	ready chan<- struct{} // pacing signal to the producer, may be nil

	pre     *preprocessor
	engines *engineSet
	sched   cascade
	cal     *calibration
	filter  *OneEuroFilter
	blink   *blinkClassifier

	logger *slog.Logger
}

// NewProcessor creates a tracking worker for one eye. The ready
// channel may be nil; when set, the worker signals it whenever the
// inbox is empty so the producer can pace capture.
func NewProcessor(eye EyeID, store *ConfigStore, in <-chan Frame, out chan<- Output, ready chan<- struct{}) *Processor {
	cfg := store.Get()
	minCutoff, beta := ParseFilterParams(cfg.MinCutoff, cfg.SpeedCoefficient)

	return &Processor{
		eye:     eye,
		store:   store,
		in:      in,
		out:     out,
		ready:   ready,
		pre:     newPreprocessor(),
		engines: newEngineSet(),
		cal:     newCalibration(),
		filter:  NewOneEuroFilter(minCutoff, beta),
		blink:   newBlinkClassifier(),
		logger:  log.With("eye", string(eye)),
	}
}

// Run processes frames until the context is cancelled. Frames are
// handled strictly in delivery order; a frame is only ever dropped
// when preprocessing fails outright, and no failure is fatal.
func (p *Processor) Run(ctx context.Context) {
	defer p.cleanup()

	for {
		if ctx.Err() != nil {
			p.logger.Info("exiting tracking worker")
			return
		}

		cfg := p.store.Get()

		if cfg.ROIW <= 0 || cfg.ROIH <= 0 {
			// Waiting for the user to draw an ROI.
			select {
			case <-ctx.Done():
				p.logger.Info("exiting tracking worker")
				return
			case <-time.After(roiPoll):
			}
			continue
		}

		p.engines.sync(cfg)

		if p.ready != nil && len(p.in) == 0 {
			select {
			case p.ready <- struct{}{}:
			default:
			}
		}

		select {
		case <-ctx.Done():
			p.logger.Info("exiting tracking worker")
			return
		case frame, ok := <-p.in:
			if !ok {
				p.logger.Info("frame source closed, exiting tracking worker")
				return
			}
			p.tick(ctx, frame, cfg)
		case <-time.After(frameWait):
			// No frame available, try again.
		}
	}
}

// tick handles exactly one delivered frame.
func (p *Processor) tick(ctx context.Context, frame Frame, cfg Config) {
	defer frame.Image.Close()

	colorFrame, gray, clean, err := p.pre.process(frame.Image, cfg)
	if err != nil {
		p.logger.Debug("skipping tick", "frame", frame.Index, "error", err)
		return
	}
	defer colorFrame.Close()
	defer clean.Close()
	defer func() { gray.Close() }()

	slots := buildSlots(cfg)
	if !slots.occupied() {
		// No algorithm enabled; an idle tick, not an error.
		return
	}

	p.sched.Tick(slots, func(a detect.Algorithm) detect.Outcome {
		return p.runDetector(ctx, a, cfg, colorFrame, &gray, clean)
	})
}

// runDetector invokes one engine and carries its output through the
// post-processing chain to the sink.
func (p *Processor) runDetector(ctx context.Context, a detect.Algorithm, cfg Config, colorFrame gocv.Mat, gray *gocv.Mat, clean gocv.Mat) detect.Outcome {
	engine := p.engines.get(a)
	if engine == nil {
		return detect.OutcomeUnknown
	}

	res, err := engine.Detect(*gray)
	if err != nil {
		p.logger.Warn("detector failed", "algorithm", a.String(), "error", err)
		return detect.OutcomeMiss
	}
	defer res.Diagnostic.Close()

	if res.Gray != nil {
		// Engine replaced the working grayscale buffer. The clean copy
		// stays untouched for blink analysis.
		gray.Close()
		*gray = *res.Gray
	}

	blink := p.blink.classify(clean, res.X, res.Y, res.Found)

	rec := GazeRecord{Origin: originOf(a), Blink: blink}
	if res.Found {
		// Calibrate against the running extent, then smooth.
		outX, outY := p.cal.normalize(res.X, res.Y)
		rec.X, rec.Y = p.filter.Filter(outX, outY)
	} else {
		// Reserved sentinel: a failure marker, never a gaze sample.
		rec.Origin = OriginFailure
	}

	p.publish(ctx, colorFrame, *gray, res.Diagnostic, rec, cfg.RotationAngle)
	return res.Outcome
}

// publish assembles the side-by-side diagnostic image and emits it
// with the gaze record. On success the frame becomes the fallback for
// future failed crops.
func (p *Processor) publish(ctx context.Context, colorFrame, gray, diagnostic gocv.Mat, rec GazeRecord, rotation float64) {
	if gray.Rows() != diagnostic.Rows() {
		p.logger.Error("size of frames to display are unequal, dropping output",
			"gray_rows", gray.Rows(), "diagnostic_rows", diagnostic.Rows())
		return
	}

	grayBGR := gocv.NewMat()
	gocv.CvtColor(gray, &grayBGR, gocv.ColorGrayToBGR)
	defer grayBGR.Close()

	diagBGR := gocv.NewMat()
	gocv.CvtColor(diagnostic, &diagBGR, gocv.ColorGrayToBGR)
	defer diagBGR.Close()

	stack := gocv.NewMat()
	gocv.Hconcat(grayBGR, diagBGR, &stack)

	select {
	case p.out <- Output{Image: stack, Record: rec}:
		p.pre.accept(colorFrame, rotation)
	case <-ctx.Done():
		stack.Close()
	}
}

func (p *Processor) cleanup() {
	p.engines.closeAll()
	p.pre.close()
}

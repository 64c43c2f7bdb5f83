package eyetrack

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// eyeFrame builds a synthetic light frame with a dark pupil disk.
func eyeFrame(rows, cols, cx, cy, radius int) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), rows, cols, gocv.MatTypeCV8UC3)
	gocv.Circle(&m, image.Pt(cx, cy), radius, color.RGBA{R: 10, G: 10, B: 10}, -1)
	return m
}

func startProcessor(t *testing.T, cfg Config, buffered int) (*Processor, chan Frame, chan Output, context.CancelFunc, chan struct{}) {
	t.Helper()
	store := NewConfigStore(DefaultConfig())
	if err := store.Set(cfg); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	in := make(chan Frame, buffered)
	out := make(chan Output, buffered)
	proc := NewProcessor(EyeRight, store, in, out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()
	return proc, in, out, cancel, done
}

func TestProcessor_BlobScenario(t *testing.T) {
	// ROI (0,0,100,100), no rotation, blob at priority 1, one frame
	// with a centered dark disk.
	cfg := Config{
		ROIW: 100, ROIH: 100,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	_, in, out, cancel, done := startProcessor(t, cfg, 1)
	defer func() {
		cancel()
		<-done
	}()

	in <- Frame{Image: eyeFrame(100, 100, 50, 50, 15), Index: 0, FPS: 60}

	select {
	case got := <-out:
		defer got.Image.Close()

		if got.Record.Origin != OriginBlob {
			t.Errorf("origin = %v, want blob", got.Record.Origin)
		}
		if got.Record.Blink {
			t.Error("blink = true, want false for an open synthetic eye")
		}
		if got.Record.X < 0 || got.Record.X > 1 || got.Record.Y < 0 || got.Record.Y > 1 {
			t.Errorf("(x, y) = (%v, %v), outside calibrated range", got.Record.X, got.Record.Y)
		}
		if got.Record.Dilation != 0 {
			t.Errorf("dilation = %d, want reserved 0", got.Record.Dilation)
		}
		// Side-by-side: working gray next to the diagnostic frame.
		if got.Image.Cols() != 200 || got.Image.Rows() != 100 {
			t.Errorf("diagnostic image %dx%d, want 200x100", got.Image.Cols(), got.Image.Rows())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no output for a valid frame")
	}
}

func TestProcessor_EmptyInboxKeepsWorkerAlive(t *testing.T) {
	cfg := Config{
		ROIW: 64, ROIH: 64,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	_, in, out, cancel, done := startProcessor(t, cfg, 1)
	defer func() {
		cancel()
		<-done
	}()

	// Several timeout cycles with nothing delivered: no output, worker
	// still alive.
	select {
	case o := <-out:
		o.Image.Close()
		t.Fatal("output emitted with an empty inbox")
	case <-done:
		t.Fatal("worker exited during idle wait")
	case <-time.After(3 * frameWait):
	}

	// Normal processing resumes once a frame arrives.
	in <- Frame{Image: eyeFrame(64, 64, 32, 32, 10), Index: 1, FPS: 60}

	select {
	case got := <-out:
		got.Image.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not resume after idle period")
	}
}

func TestProcessor_UnconfiguredROISleepsUntilCancelled(t *testing.T) {
	cfg := DefaultConfig() // ROI unset
	cfg.Blob = AlgorithmConfig{Enabled: true, Priority: 1}

	proc, _, out, cancel, done := startProcessor(t, cfg, 1)

	// Let it idle through a few poll cycles.
	time.Sleep(3 * roiPoll)

	select {
	case o := <-out:
		o.Image.Close()
		t.Fatal("output emitted while roi unconfigured")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit promptly on cancellation")
	}

	// No detector engine may have been constructed while idling.
	if len(proc.engines.detectors) != 0 {
		t.Errorf("%d engines constructed with degenerate roi, want 0", len(proc.engines.detectors))
	}
}

func TestProcessor_NoAlgorithmEnabledIsIdleTick(t *testing.T) {
	cfg := Config{
		ROIW: 64, ROIH: 64,
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	_, in, out, cancel, done := startProcessor(t, cfg, 1)
	defer func() {
		cancel()
		<-done
	}()

	in <- Frame{Image: eyeFrame(64, 64, 32, 32, 10), Index: 0, FPS: 60}

	select {
	case o := <-out:
		o.Image.Close()
		t.Fatal("output emitted with no algorithm enabled")
	case <-time.After(3 * frameWait):
	}
}

func TestProcessor_FrameOrderPreserved(t *testing.T) {
	cfg := Config{
		ROIW: 64, ROIH: 64,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	_, in, out, cancel, done := startProcessor(t, cfg, 4)
	defer func() {
		cancel()
		<-done
	}()

	// Pupil drifts right across frames; records must come back in
	// delivery order, which shows as monotonically increasing x once
	// calibration has extent.
	for i := 0; i < 4; i++ {
		in <- Frame{Image: eyeFrame(64, 64, 16+i*10, 32, 6), Index: i, FPS: 60}
	}

	var xs []float64
	for i := 0; i < 4; i++ {
		select {
		case got := <-out:
			xs = append(xs, got.Record.X)
			got.Image.Close()
		case <-time.After(2 * time.Second):
			t.Fatalf("missing output %d of 4", i+1)
		}
	}

	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			t.Errorf("x sequence %v not monotonic; frames processed out of order?", xs)
			break
		}
	}
}

func TestProcessor_MismatchedDiagnosticDropsOutput(t *testing.T) {
	cfg := Config{
		ROIW: 64, ROIH: 64,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	store := NewConfigStore(DefaultConfig())
	if err := store.Set(cfg); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	out := make(chan Output, 1)
	proc := NewProcessor(EyeRight, store, nil, out, nil)
	defer proc.cleanup()

	colorFrame := testFrame(64, 64)
	defer colorFrame.Close()
	gray := grayFrame(64, 64, 120)
	defer gray.Close()

	// An external engine handed back a diagnostic of the wrong size;
	// the tick's output is dropped and the worker moves on.
	short := grayFrame(32, 64, 120)
	defer short.Close()

	proc.publish(context.Background(), colorFrame, gray, short, GazeRecord{Origin: OriginBlob}, 0)

	select {
	case o := <-out:
		o.Image.Close()
		t.Fatal("output emitted for mismatched diagnostic frame")
	default:
	}
	if proc.pre.hasPrev {
		t.Error("fallback state updated for a dropped tick")
	}

	// A well-formed diagnostic on the next tick publishes normally and
	// records the frame for fallback.
	diag := grayFrame(64, 64, 120)
	defer diag.Close()
	proc.publish(context.Background(), colorFrame, gray, diag, GazeRecord{Origin: OriginBlob}, 0)

	select {
	case got := <-out:
		got.Image.Close()
	default:
		t.Fatal("no output for a size-matched diagnostic frame")
	}
	if !proc.pre.hasPrev {
		t.Error("fallback state not updated after a successful publish")
	}
}

func TestProcessor_SignalsReadyWhenInboxEmpty(t *testing.T) {
	cfg := Config{
		ROIW: 64, ROIH: 64,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	store := NewConfigStore(DefaultConfig())
	if err := store.Set(cfg); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	in := make(chan Frame, 1)
	out := make(chan Output, 1)
	ready := make(chan struct{}, 1)
	proc := NewProcessor(EyeRight, store, in, out, ready)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// An empty inbox gets the producer poked.
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never signalled ready with an empty inbox")
	}

	// Leave the next signal unconsumed: the send is non-blocking, so
	// the worker keeps cycling instead of wedging on the channel.
	time.Sleep(3 * frameWait)
	select {
	case <-done:
		t.Fatal("worker exited while pacing an absent producer")
	default:
	}
	select {
	case <-ready:
	default:
		t.Error("ready not re-signalled after the first signal was consumed")
	}

	// Pacing aside, frames still flow.
	in <- Frame{Image: eyeFrame(64, 64, 32, 32, 10), Index: 0, FPS: 60}
	select {
	case got := <-out:
		got.Image.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no output after frame delivery")
	}
}

func TestProcessor_ConfigChangeSwitchesDetector(t *testing.T) {
	store := NewConfigStore(DefaultConfig())
	cfg := Config{
		ROIW: 64, ROIH: 64,
		Blob:             AlgorithmConfig{Enabled: true, Priority: 1},
		MinCutoff:        "0.0004",
		SpeedCoefficient: "0.9",
	}
	if err := store.Set(cfg); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	in := make(chan Frame, 1)
	out := make(chan Output, 1)
	proc := NewProcessor(EyeLeft, store, in, out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	in <- Frame{Image: eyeFrame(64, 64, 32, 32, 10), Index: 0, FPS: 60}
	first := <-out
	first.Image.Close()
	if first.Record.Origin != OriginBlob {
		t.Fatalf("origin = %v, want blob", first.Record.Origin)
	}

	// The UI flips algorithms mid-run; the next tick picks it up.
	cfg.Blob = AlgorithmConfig{}
	cfg.Edge = AlgorithmConfig{Enabled: true, Priority: 1}
	if err := store.Set(cfg); err != nil {
		t.Fatalf("config rejected: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		in <- Frame{Image: eyeFrame(64, 64, 32, 32, 10), Index: 1, FPS: 60}
		select {
		case got := <-out:
			origin := got.Record.Origin
			got.Image.Close()
			if origin == OriginEdge {
				return
			}
		case <-deadline:
			t.Fatal("detector never switched to edge after config change")
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/irisware/gazepipe/internal/log"
	"github.com/irisware/gazepipe/pkg/eyetrack"
)

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.SaveEvery < 1 {
		opts.SaveEvery = 1
	}

	session := uuid.NewString()
	logger := log.With("session", session, "eye", opts.Eye)
	logger.Info("starting gazepiped", "source", opts.Source)

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	store := eyetrack.NewConfigStore(eyetrack.DefaultConfig())
	if err := store.Set(cfg); err != nil {
		return err
	}

	capture, err := openCapture(opts.Source)
	if err != nil {
		return fmt.Errorf("open capture source: %w", err)
	}
	defer capture.Close()

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	frames := make(chan eyetrack.Frame, 1)
	outputs := make(chan eyetrack.Output, 4)
	ready := make(chan struct{}, 1)

	proc := eyetrack.NewProcessor(eyetrack.EyeID(opts.Eye), store, frames, outputs, ready)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(frames)
		produce(ctx, capture, frames, ready)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		proc.Run(ctx)
		// Drain so the sink loop below terminates.
		close(outputs)
	}()

	sink(outputs, logger)

	wg.Wait()
	logger.Info("gazepiped stopped")
	return nil
}

// produce reads frames from the capture source, paced by the
// tracker's ready signal.
func produce(ctx context.Context, capture *gocv.VideoCapture, frames chan<- eyetrack.Frame, ready <-chan struct{}) {
	fps := capture.Get(gocv.VideoCaptureFPS)
	index := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ready:
		}

		img := gocv.NewMat()
		if ok := capture.Read(&img); !ok || img.Empty() {
			img.Close()
			log.Warn("capture source exhausted")
			return
		}

		select {
		case frames <- eyetrack.Frame{Image: img, Index: index, FPS: fps}:
			index++
		case <-ctx.Done():
			img.Close()
			return
		}
	}
}

// sink consumes tracker output, logging records and periodically
// writing diagnostic images.
func sink(outputs <-chan eyetrack.Output, logger *slog.Logger) {
	count := 0
	for out := range outputs {
		if count%opts.SaveEvery == 0 {
			name := filepath.Join(opts.OutDir, fmt.Sprintf("diag_%06d.png", count))
			gocv.IMWrite(name, out.Image)
		}
		logger.Info("gaze",
			"origin", out.Record.Origin.String(),
			"x", out.Record.X,
			"y", out.Record.Y,
			"blink", out.Record.Blink,
		)
		out.Image.Close()
		count++
	}
}

func buildConfig() (eyetrack.Config, error) {
	cfg := eyetrack.DefaultConfig()
	cfg.ROIX = opts.ROIX
	cfg.ROIY = opts.ROIY
	cfg.ROIW = opts.ROIW
	cfg.ROIH = opts.ROIH
	cfg.RotationAngle = opts.Rotation
	cfg.FocalLength = opts.FocalLength

	cfg.Blob = eyetrack.AlgorithmConfig{}
	switch opts.Algorithm {
	case "edge":
		cfg.Edge = eyetrack.AlgorithmConfig{Enabled: true, Priority: 1}
	case "hybrid":
		cfg.Hybrid = eyetrack.AlgorithmConfig{Enabled: true, Priority: 1}
	case "model3d":
		cfg.Model3D = eyetrack.AlgorithmConfig{Enabled: true, Priority: 1}
	case "blob":
		cfg.Blob = eyetrack.AlgorithmConfig{Enabled: true, Priority: 1}
	default:
		return cfg, fmt.Errorf("unknown algorithm %q", opts.Algorithm)
	}
	return cfg, nil
}

func openCapture(source string) (*gocv.VideoCapture, error) {
	if idx, err := strconv.Atoi(source); err == nil {
		return gocv.OpenVideoCapture(idx)
	}
	return gocv.OpenVideoCapture(source)
}

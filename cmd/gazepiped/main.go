// gazepiped runs the per-eye tracking pipeline against a camera device
// or a video file, standing in for the windowed app: it captures
// frames, feeds one tracker, and writes diagnostic images to disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/irisware/gazepipe/internal/log"
)

var opts struct {
	Source      string
	Eye         string
	LogLevel    string
	OutDir      string
	SaveEvery   int
	ROIX        int
	ROIY        int
	ROIW        int
	ROIH        int
	Rotation    float64
	FocalLength float64
	Algorithm   string
}

var rootCmd = &cobra.Command{
	Use:   "gazepiped",
	Short: "Per-eye gaze tracking pipeline daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		log.Init(opts.LogLevel)
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.Source, "source", "s", "0", "Capture source: device index or video file path")
	rootCmd.Flags().StringVar(&opts.Eye, "eye", "right", "Which eye this pipeline tracks (left or right)")
	rootCmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.Flags().StringVarP(&opts.OutDir, "out", "o", "out", "Directory for diagnostic images")
	rootCmd.Flags().IntVar(&opts.SaveEvery, "save-every", 30, "Write every Nth diagnostic image")
	rootCmd.Flags().IntVar(&opts.ROIX, "roi-x", 0, "Region of interest X")
	rootCmd.Flags().IntVar(&opts.ROIY, "roi-y", 0, "Region of interest Y")
	rootCmd.Flags().IntVar(&opts.ROIW, "roi-w", 0, "Region of interest width (0 idles the tracker)")
	rootCmd.Flags().IntVar(&opts.ROIH, "roi-h", 0, "Region of interest height")
	rootCmd.Flags().Float64Var(&opts.Rotation, "rotation", 0, "Rotation angle in degrees")
	rootCmd.Flags().Float64Var(&opts.FocalLength, "focal-length", 30, "Camera focal length")
	rootCmd.Flags().StringVarP(&opts.Algorithm, "algorithm", "a", "blob", "Detector: edge, hybrid, model3d or blob")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

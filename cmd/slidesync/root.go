package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "slidesync",
	Short: "Render timed slides, karaoke subtitles and a visualizer into an MP4",
	Long: `slidesync composites a timeline of images and video clips with word-level
karaoke subtitles and an optional audio visualizer, then encodes the frames
together with the soundtrack into an MP4, either locally through ffmpeg or on
a remote session server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/server"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote session encoder",
	Long: `Serve the session API that remote exports upload their frames to.
Configuration comes from the environment or a .env file: PORT, TEMP_DIR,
SESSION_TTL_MINUTES, MAX_CHUNK_FRAMES, MAX_AUDIO_MB, FFMPEG_PATH, ALLOWED_ORIGIN.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	system.InitResourceLimits(logger)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}
	logger.Info("server config", zap.Stringer("config", cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, cfg, logger)
}

// Package server is the remote session encoder: clients open a session with
// their soundtrack, append JPEG frames in batches and finalize into an MP4.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ivlev/slidesync/internal/config"
	"go.uber.org/zap"
)

// NewRouter wires the session API.
func NewRouter(h *Handler, cfg *config.ServerConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = 64 << 20

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.POST("/sessions", h.CreateSession)
		api.POST("/sessions/:id/chunks", h.AppendChunk)
		api.POST("/sessions/:id/finalize", h.Finalize)
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Sweep removes expired sessions every interval until ctx is done.
func Sweep(ctx context.Context, store *Store, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ids := store.Sweep(now); len(ids) > 0 {
				logger.Info("expired sessions removed", zap.Strings("sessions", ids))
			}
		}
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.ServerConfig, logger *zap.Logger) error {
	h := NewHandler(cfg, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: NewRouter(h, cfg, logger),
	}

	if ffmpeg, encoder, _, err := h.Tools(); err != nil {
		logger.Warn("ffmpeg unavailable, finalize will retry", zap.Error(err))
	} else {
		logger.Info("encoder ready", zap.String("ffmpeg", ffmpeg), zap.String("encoder", encoder))
	}
	go Sweep(ctx, h.Store(), max(cfg.SessionTTL/4, time.Second), logger)

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/ivlev/slidesync/internal/video"
	"go.uber.org/zap"
)

// Handler serves the session encoder API.
type Handler struct {
	cfg    *config.ServerConfig
	store  *Store
	logger *zap.Logger

	toolsMu     sync.Mutex
	ffmpeg      string
	encoder     string
	encoderArgs []string
}

func NewHandler(cfg *config.ServerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:    cfg,
		store:  NewStore(cfg.TempDir, cfg.SessionTTL),
		logger: logger,
	}
}

// Store exposes the session store, mainly for the sweeper.
func (h *Handler) Store() *Store {
	return h.store
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.store.Len(),
		"time":     time.Now(),
	})
}

// CreateSession handles POST /api/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if h.cfg.MaxAudioBytes > 0 && fh.Size > h.cfg.MaxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audio upload: " + err.Error()})
		return
	}
	defer f.Close()

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	s, err := h.store.Create(format, f)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	h.logger.Info("session created", zap.String("session", s.ID), zap.String("audio_format", format))
	c.JSON(http.StatusCreated, gin.H{"sessionId": s.ID})
}

// AppendChunk handles POST /api/sessions/:id/chunks
func (h *Handler) AppendChunk(c *gin.Context) {
	s, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	start, err := strconv.Atoi(c.PostForm("start_index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_index must be an integer"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["frames"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "frames are required"})
		return
	}
	files := form.File["frames"]
	if len(files) > h.cfg.MaxChunkFrames {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Chunk too large (max %d frames)", h.cfg.MaxChunkFrames)})
		return
	}

	frames, err := readParts(files)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appended, duplicate, err := s.Append(start, frames)
	switch {
	case errors.Is(err, ErrChunkGap):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "appended": appended})
		return
	case errors.Is(err, ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("failed to append chunk", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store frames"})
		return
	}

	if duplicate {
		h.logger.Warn("overlapping chunk", zap.String("session", s.ID), zap.Int("start", start), zap.Int("frames", len(frames)))
	}
	c.JSON(http.StatusOK, gin.H{"appended": appended, "duplicate": duplicate})
}

// Finalize handles POST /api/sessions/:id/finalize
func (h *Handler) Finalize(c *gin.Context) {
	fps := config.FPS
	if v := c.PostForm("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 120 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fps must be between 1 and 120"})
			return
		}
		fps = n
	}

	s, err := h.store.Take(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(s.Dir)

	frames := s.Close()
	if frames == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has no frames"})
		return
	}

	out, err := h.mux(c, s, fps)
	if err != nil {
		h.logger.Error("mux failed", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding failed"})
		return
	}

	h.logger.Info("session finalized", zap.String("session", s.ID), zap.Int("frames", frames), zap.Int("fps", fps))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mp4", s.ID))
	c.File(out)
}

// Tools finds ffmpeg and probes its H.264 encoders. Only a successful probe
// is kept, so ffmpeg installed after startup is picked up by the next call.
func (h *Handler) Tools() (ffmpeg, encoder string, encoderArgs []string, err error) {
	h.toolsMu.Lock()
	defer h.toolsMu.Unlock()
	if h.ffmpeg == "" {
		p, err := system.FindFFmpeg(h.cfg.FFmpegPath)
		if err != nil {
			return "", "", nil, err
		}
		// not tied to a request: a cancelled probe would pin the software encoder
		h.encoder, h.encoderArgs = system.GetBestH264Encoder(context.Background(), p)
		h.ffmpeg = p
	}
	return h.ffmpeg, h.encoder, h.encoderArgs, nil
}

func (h *Handler) mux(c *gin.Context, s *Session, fps int) (string, error) {
	ffmpeg, encoder, encoderArgs, err := h.Tools()
	if err != nil {
		return "", err
	}

	out := filepath.Join(s.Dir, "output.mp4")
	args := video.MuxArgs(video.MuxOptions{
		FPS:         fps,
		VideoInput:  s.FramePattern(),
		AudioInput:  s.AudioPath,
		AudioFormat: s.AudioFormat,
		Encoder:     encoder,
		EncoderArgs: encoderArgs,
		Output:      out,
	})

	cmd := exec.CommandContext(c.Request.Context(), ffmpeg, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg error: %v, output: %s", err, string(output))
	}
	return out, nil
}

func readParts(files []*multipart.FileHeader) ([][]byte, error) {
	frames := make([][]byte, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames[i], err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return frames, nil
}

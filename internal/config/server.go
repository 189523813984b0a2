package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig configures the remote session encoder service.
type ServerConfig struct {
	Port            string
	TempDir         string
	SessionTTL      time.Duration
	MaxChunkFrames  int
	MaxAudioBytes   int64
	FFmpegPath      string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// LoadServerConfig reads the server settings from the environment (and a .env file if present).
func LoadServerConfig() (*ServerConfig, error) {
	_ = godotenv.Load()

	cfg := &ServerConfig{
		Port:            getEnv("PORT", "8090"),
		TempDir:         getEnv("TEMP_DIR", os.TempDir()),
		SessionTTL:      time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		MaxChunkFrames:  getEnvAsInt("MAX_CHUNK_FRAMES", 240),
		MaxAudioBytes:   int64(getEnvAsInt("MAX_AUDIO_MB", 200)) << 20,
		FFmpegPath:      getEnv("FFMPEG_PATH", ""),
		AllowedOrigins:  []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},
		ShutdownTimeout: 10 * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_MINUTES must be positive")
	}
	if c.MaxChunkFrames <= 0 {
		return errors.New("MAX_CHUNK_FRAMES must be positive")
	}
	return nil
}

func (c *ServerConfig) String() string {
	return fmt.Sprintf("ServerConfig{Port: %s, TempDir: %s, TTL: %s, MaxChunk: %d}",
		c.Port, c.TempDir, c.SessionTTL, c.MaxChunkFrames)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

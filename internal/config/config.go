package config

import "time"

// FPS is the fixed output frame rate.
const FPS = 30

// Backend selects where frames are muxed.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// Config describes one export run as assembled by the CLI.
type Config struct {
	ProjectPath   string
	OutputVideo   string
	Workers       int
	Backend       Backend
	ServerURL     string
	BatchSize     int
	JPEGQuality   int
	FFmpegPath    string
	HTTPTimeout   time.Duration
	ShowStats     bool
	BuildVersion  string
	ExportTimeout time.Duration
}

// DefaultConfig returns the export defaults: one render worker, the local
// backend, JPEG quality 90 and 60-frame remote batches (two seconds at 30 FPS).
func DefaultConfig() Config {
	return Config{
		Workers:       1,
		Backend:       BackendLocal,
		BatchSize:     60,
		JPEGQuality:   90,
		HTTPTimeout:   2 * time.Minute,
		ExportTimeout: 2 * time.Hour,
	}
}

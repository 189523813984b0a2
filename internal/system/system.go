package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// InitResourceLimits raises the open file limit: every export keeps a few
// pipes and session files open at once.
func InitResourceLimits(logger *zap.Logger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("failed to read open file limit", zap.Error(err))
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn("failed to raise open file limit", zap.Error(err))
	} else {
		logger.Debug("open file limit raised", zap.Uint64("limit", uint64(rLimit.Cur)))
	}
}

// FindFFmpeg resolves the ffmpeg binary: an explicit path wins, otherwise
// the first ffmpeg on PATH.
func FindFFmpeg(override string) (string, error) {
	name := "ffmpeg"
	if override != "" {
		name = override
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found (%s): %w", name, err)
	}
	return path, nil
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one.
func GetBestH264Encoder(ctx context.Context, ffmpegPath string) (string, []string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	encoders := []struct {
		name string
		args []string
	}{
		{"h264_videotoolbox", []string{"-b:v", "8000k"}},
		{"h264_nvenc", []string{"-cq", "23"}},
	}

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
	if err == nil {
		for _, enc := range encoders {
			if strings.Contains(string(out), enc.name) {
				return enc.name, enc.args
			}
		}
	}

	return "libx264", []string{"-crf", "20", "-preset", "medium"}
}

// FindLatestProject returns the most recently modified project file
// (.yaml or .yml) in dir.
func FindLatestProject(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов проекта", dir)
	}
	return latestFile, nil
}

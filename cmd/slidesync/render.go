package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/engine"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/ivlev/slidesync/internal/timeline"
	"github.com/ivlev/slidesync/internal/video"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderOpts = config.DefaultConfig()

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Export a project to MP4",
	Long: `Render every frame of a project file and encode it with its soundtrack.
Without --project the most recent project in input/projects is used; without
--out the video is written to output/<project>_<timestamp>.mp4.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.ProjectPath, "project", "p", "", "Project file (default: newest file in input/projects/)")
	f.StringVarP(&renderOpts.OutputVideo, "out", "o", "", "Output video path")
	f.StringVar((*string)(&renderOpts.Backend), "backend", string(config.BackendLocal), "Encoder backend: local or remote")
	f.StringVar(&renderOpts.ServerURL, "server", "http://localhost:8090", "Session server URL for the remote backend")
	f.IntVarP(&renderOpts.Workers, "workers", "w", renderOpts.Workers, fmt.Sprintf("Render workers (0 = all %d CPUs)", runtime.NumCPU()))
	f.IntVar(&renderOpts.BatchSize, "batch", renderOpts.BatchSize, "Frames per remote upload batch")
	f.IntVar(&renderOpts.JPEGQuality, "quality", renderOpts.JPEGQuality, "JPEG quality of intermediate frames")
	f.StringVar(&renderOpts.FFmpegPath, "ffmpeg", "", "Path to the ffmpeg binary")
	f.DurationVar(&renderOpts.HTTPTimeout, "http-timeout", renderOpts.HTTPTimeout, "Timeout of one HTTP request")
	f.DurationVar(&renderOpts.ExportTimeout, "timeout", renderOpts.ExportTimeout, "Timeout of the whole export")
	f.BoolVar(&renderOpts.ShowStats, "stats", false, "Print a performance report")
}

func runRender(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	system.InitResourceLimits(logger)

	cfg := renderOpts
	cfg.BuildVersion = Version
	if cfg.ProjectPath == "" {
		latest, err := system.FindLatestProject("input/projects")
		if err != nil {
			return fmt.Errorf("%v. Положите проект в input/projects/ или укажите --project", err)
		}
		cfg.ProjectPath = latest
		fmt.Printf("[*] Выбран проект: %s\n", cfg.ProjectPath)
	}
	if cfg.OutputVideo == "" {
		cfg.OutputVideo = defaultOutput(cfg.ProjectPath)
	}

	project, err := timeline.ReadProject(cfg.ProjectPath)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	if _, err := newBackend(cfg, client, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.ExportTimeout)
	defer cancel()

	w, h := project.Render.Orientation.Size()
	fmt.Println("--- [SLIDESYNC EXPORT] ---")
	fmt.Printf("[*] Проект: %s | Ассетов: %d | Субтитров: %d\n", cfg.ProjectPath, len(project.Assets), len(project.Subtitles))
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Бэкенд: %s\n", w, h, config.FPS, cfg.Backend)
	fmt.Println("--------------------------")

	exporter := &engine.Exporter{
		NewBackend: func() (video.Backend, error) { return newBackend(cfg, client, logger) },
		Client:     client,
		FFmpegPath: cfg.FFmpegPath,
		Workers:    cfg.Workers,
		Quality:    cfg.JPEGQuality,
		OnProgress: printProgress,
		Logger:     logger,
	}
	res, err := exporter.Export(ctx, engine.RequestFromProject(project))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputVideo), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.OutputVideo, res.Blob.Data, 0644); err != nil {
		return fmt.Errorf("ошибка записи видео: %w", err)
	}

	if cfg.ShowStats {
		printReport(cfg, res)
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
	return nil
}

func newBackend(cfg config.Config, client *http.Client, logger *zap.Logger) (video.Backend, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return video.NewLocalEncoder(cfg.FFmpegPath, logger), nil
	case config.BackendRemote:
		if cfg.ServerURL == "" {
			return nil, fmt.Errorf("--server is required for the remote backend")
		}
		return video.NewRemoteEncoder(cfg.ServerURL, client, cfg.BatchSize, logger), nil
	}
	return nil, fmt.Errorf("unknown backend %q (local, remote)", cfg.Backend)
}

func defaultOutput(projectPath string) string {
	baseName := filepath.Base(projectPath)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

func printProgress(p engine.Progress) {
	switch p.Stage {
	case engine.StageError:
		fmt.Printf("[!] %s\n", p.Message)
	case engine.StageRendering:
		fmt.Printf("[>] %3.0f%% %s\n", p.Percent, p.Message)
	default:
		fmt.Printf("[*] %s: %s\n", p.Stage, p.Message)
	}
}

func printReport(cfg config.Config, res *engine.Result) {
	fps := float64(res.Frames) / res.TotalTime.Seconds()
	fmt.Printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Export: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Frames: %d (%.2fs of audio)\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		cfg.BuildVersion, res.ID, res.TotalTime.Seconds(), res.RenderTime.Seconds(), res.EncodeTime.Seconds(),
		res.Frames, res.Duration, fps,
	)
}

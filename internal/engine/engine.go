// Package engine drives one export: audio and assets in, frames through the
// compositor, JPEGs into an encoder backend, one MP4 out.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ivlev/slidesync/internal/analyzer"
	"github.com/ivlev/slidesync/internal/audio"
	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/renderer"
	"github.com/ivlev/slidesync/internal/source"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/ivlev/slidesync/internal/timeline"
	"github.com/ivlev/slidesync/internal/video"
	"github.com/ivlev/slidesync/internal/visualizer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultQuality = 90

	// framesPerWorker is how many finished canvases a worker may hold
	// before the ordered writer drains them.
	framesPerWorker = 2
)

// Request is everything one export needs. Track and Frequencies may be
// supplied directly; otherwise they are loaded from AudioSource and
// FrequenciesPath (or extracted from the PCM).
type Request struct {
	AudioSource     string
	Track           *audio.Track
	Frequencies     [][]byte
	FrequenciesPath string

	Assets    []timeline.Asset
	Subtitles []timeline.SubtitleLine
	Render    config.RenderConfig
}

// RequestFromProject builds a request from a project file.
func RequestFromProject(p *timeline.Project) Request {
	return Request{
		AudioSource:     p.Audio,
		FrequenciesPath: p.Frequencies,
		Assets:          p.Assets,
		Subtitles:       p.Subtitles,
		Render:          p.Render,
	}
}

// Result of a finished export.
type Result struct {
	ID       string
	Blob     *video.Blob
	Frames   int
	Duration float64

	RenderTime time.Duration
	EncodeTime time.Duration
	TotalTime  time.Duration
}

// Exporter runs exports. Every Export gets its own backend from NewBackend,
// so one Exporter may serve concurrent exports. Workers <= 0 means one render
// worker per CPU, 1 renders sequentially.
type Exporter struct {
	NewBackend func() (video.Backend, error)
	Client     *http.Client
	FFmpegPath string
	Workers    int
	Quality    int
	Extractor  audio.Extractor
	OnProgress ProgressFunc
	Logger     *zap.Logger
}

// Export runs the whole pipeline. On failure the observer gets exactly one
// error notification and the error is returned unchanged.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	id := uuid.NewString()
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("export", id))
	tr := newTracker(e.OnProgress)

	res, err := e.run(ctx, req, tr, logger)
	if err != nil {
		failed := tr.current()
		tr.enter(StageError, 0, err.Error())
		logger.Error("export failed", zap.String("stage", string(failed)), zap.Error(err))
		return nil, err
	}
	res.ID = id
	tr.enter(StageComplete, 100, "export complete")
	logger.Info("export complete",
		zap.Int("frames", res.Frames),
		zap.Duration("render", res.RenderTime),
		zap.Duration("encode", res.EncodeTime),
		zap.Int("bytes", len(res.Blob.Data)),
	)
	return res, nil
}

func (e *Exporter) run(ctx context.Context, req Request, tr *tracker, logger *zap.Logger) (*Result, error) {
	started := time.Now()

	tr.enter(StageLoading, 0, "loading audio")
	if err := validate(req); err != nil {
		return nil, err
	}
	if e.NewBackend == nil {
		return nil, exporterr.Config("backend", fmt.Errorf("no backend factory"))
	}
	backend, err := e.NewBackend()
	if err != nil {
		return nil, exporterr.Config("backend", err)
	}
	track, err := e.loadAudio(ctx, req)
	if err != nil {
		return nil, err
	}
	frames := timeline.FrameCount(track.Duration, config.FPS)
	if frames == 0 {
		return nil, exporterr.AudioDecode("duration", fmt.Errorf("audio has no length"))
	}
	env, err := e.envelope(req, track, frames)
	if err != nil {
		return nil, err
	}
	if err := backend.Load(ctx); err != nil {
		return nil, err
	}
	logger.Info("audio loaded", zap.Float64("duration", track.Duration), zap.Int("frames", frames))

	tr.enter(StagePreparing, 5, fmt.Sprintf("loading %d assets", len(req.Assets)))
	assets, err := e.preload(ctx, req, logger)
	if err != nil {
		return nil, err
	}
	if err := backend.Start(ctx, track); err != nil {
		return nil, err
	}

	tr.enter(StageRendering, 10, fmt.Sprintf("rendering %d frames", frames))
	renderStart := time.Now()
	if err := e.render(ctx, backend, req, assets, track.Duration, env, frames, tr, logger); err != nil {
		return nil, err
	}
	renderTime := time.Since(renderStart)

	tr.enter(StageEncoding, 90, "finalizing video")
	encodeStart := time.Now()
	blob, err := backend.Finalize(ctx, config.FPS)
	if err != nil {
		return nil, err
	}

	return &Result{
		Blob:       blob,
		Frames:     frames,
		Duration:   track.Duration,
		RenderTime: renderTime,
		EncodeTime: time.Since(encodeStart),
		TotalTime:  time.Since(started),
	}, nil
}

func validate(req Request) error {
	if err := req.Render.Validate(); err != nil {
		return exporterr.Config("render config", err)
	}
	if err := timeline.ValidateAssets(req.Assets); err != nil {
		return exporterr.Config("assets", err)
	}
	if err := timeline.ValidateSubtitles(req.Subtitles); err != nil {
		return exporterr.Config("subtitles", err)
	}
	return nil
}

// loadAudio returns a track with both PCM and the encoded bytes the
// backends pass through to the output.
func (e *Exporter) loadAudio(ctx context.Context, req Request) (*audio.Track, error) {
	if t := req.Track; t != nil && len(t.PCM) > 0 {
		if len(t.Data) == 0 {
			return nil, exporterr.AudioDecode("track", fmt.Errorf("%s: decoded samples without encoded audio", t.Name))
		}
		if t.Duration <= 0 {
			t.Duration = float64(len(t.PCM)) / audio.SampleRate
		}
		return t, nil
	}

	ffmpeg, err := system.FindFFmpeg(e.FFmpegPath)
	if err != nil {
		return nil, exporterr.AudioDecode("find ffmpeg", err)
	}
	if t := req.Track; t != nil && len(t.Data) > 0 {
		pcm, err := audio.Decode(ctx, ffmpeg, t.Data)
		if err != nil {
			return nil, err
		}
		t.PCM, t.Duration = pcm, float64(len(pcm))/audio.SampleRate
		return t, nil
	}
	if req.AudioSource == "" {
		return nil, exporterr.Config("audio", fmt.Errorf("no audio source"))
	}
	return audio.Load(ctx, ffmpeg, e.Client, req.AudioSource)
}

// envelope returns exactly frames entries, or nil when nothing draws them.
func (e *Exporter) envelope(req Request, track *audio.Track, frames int) ([][]byte, error) {
	env := req.Frequencies
	switch {
	case env != nil:
	case req.FrequenciesPath != "":
		var err error
		env, err = audio.ReadEnvelope(req.FrequenciesPath)
		if err != nil {
			return nil, exporterr.AudioDecode("read envelope", err)
		}
	case visualizer.Enabled(req.Render):
		ex := e.Extractor
		if ex == nil {
			ex = audio.NewFFTExtractor()
		}
		env = ex.Extract(track.PCM, audio.SampleRate, config.FPS, frames)
	default:
		return nil, nil
	}
	return audio.FitEnvelope(env, frames), nil
}

// preload loads media for the assets that do not carry it yet.
func (e *Exporter) preload(ctx context.Context, req Request, logger *zap.Logger) ([]timeline.Asset, error) {
	assets := slices.Clone(req.Assets)
	var missing []int
	for i, a := range assets {
		if a.Media == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return assets, nil
	}

	pending := make([]timeline.Asset, len(missing))
	needFFmpeg := false
	for j, i := range missing {
		pending[j] = assets[i]
		needFFmpeg = needFFmpeg || assets[i].Kind == timeline.KindVideo
	}

	det, err := analyzer.NewDetector(req.Render.FocusDetector)
	if err != nil {
		return nil, exporterr.Config("focus detector", err)
	}
	loader := &source.Loader{
		Client:   e.Client,
		FPS:      config.FPS,
		Workers:  max(e.Workers, 4),
		Logger:   logger,
		Detector: det,
	}
	if needFFmpeg {
		ffmpeg, err := system.FindFFmpeg(e.FFmpegPath)
		if err != nil {
			return nil, exporterr.AssetLoad("find ffmpeg", err)
		}
		loader.FFmpegPath = ffmpeg
	}

	loaded, err := loader.Preload(ctx, pending, req.Render.Pan)
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		assets[i] = loaded[j]
	}
	return assets, nil
}

// render composites frames in windows. Within a window frames are rendered
// in parallel; they are always handed to the backend in index order.
func (e *Exporter) render(ctx context.Context, backend video.Backend, req Request, assets []timeline.Asset, total float64, env [][]byte, frames int, tr *tracker, logger *zap.Logger) error {
	workers := 1
	if e.Workers != 1 {
		w, h := req.Render.Orientation.Size()
		workers = system.RenderWorkers(e.Workers, w*h*4, framesPerWorker)
	}
	quality := e.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	logger.Debug("render workers", zap.Int("workers", workers))

	pool := system.NewImagePool()
	renderers := make(chan *renderer.Renderer, workers)
	for range workers {
		r, err := renderer.New(req.Render, total, pool)
		if err != nil {
			return exporterr.Config("renderer", err)
		}
		defer r.Close()
		renderers <- r
	}

	window := workers * framesPerWorker
	encoded := make([][]byte, window)
	for first := 0; first < frames; first += window {
		last := min(first+window, frames)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := first; i < last; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r := <-renderers
				defer func() { renderers <- r }()

				data, err := encodeFrame(r, frameAt(req, assets, env, i), quality)
				if err != nil {
					return exporterr.Encode(fmt.Sprintf("jpeg frame %d", i), err)
				}
				encoded[i-first] = data
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i := first; i < last; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := backend.WriteFrame(ctx, i, encoded[i-first]); err != nil {
				return err
			}
			encoded[i-first] = nil
			if i%config.FPS == 0 {
				tr.report(10+80*float64(i)/float64(frames), fmt.Sprintf("rendered %d/%d frames", i, frames))
			}
		}
	}
	return nil
}

func frameAt(req Request, assets []timeline.Asset, env [][]byte, i int) renderer.Frame {
	f := renderer.Frame{
		Time:      float64(i) / float64(config.FPS),
		Assets:    assets,
		Subtitles: req.Subtitles,
	}
	if env != nil {
		f.Freq = env[i]
		if i > 0 {
			f.PrevFreq = env[i-1]
		}
	}
	return f
}

func encodeFrame(r *renderer.Renderer, f renderer.Frame, quality int) ([]byte, error) {
	img := r.Render(f)
	defer r.Release(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

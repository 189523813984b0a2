package source

import (
	"context"
	"net/http"

	"github.com/ivlev/slidesync/internal/analyzer"
	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/timeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader resolves asset sources into media.
type Loader struct {
	Client     *http.Client
	FFmpegPath string // required for video assets
	FPS        int
	Workers    int
	Logger     *zap.Logger

	// Detector finds the focal point of stills; nil means contrast detection.
	Detector analyzer.Detector
}

// Load resolves one asset source.
func (l *Loader) Load(ctx context.Context, kind timeline.AssetKind, src string) (timeline.Media, error) {
	switch kind {
	case timeline.KindImage:
		img, err := l.loadImage(ctx, src)
		if err != nil {
			return nil, exporterr.AssetLoad("load "+src, err)
		}
		return NewStill(img), nil
	case timeline.KindVideo:
		frames, err := extractFrames(ctx, l.FFmpegPath, src, l.FPS)
		if err != nil {
			return nil, exporterr.AssetLoad("load "+src, err)
		}
		clip, err := NewClip(frames, l.FPS)
		if err != nil {
			return nil, exporterr.AssetLoad("load "+src, err)
		}
		return clip, nil
	}
	panic("source: unhandled asset kind " + string(kind))
}

type assetKey struct {
	kind timeline.AssetKind
	src  string
}

type loaded struct {
	media timeline.Media
	focus *timeline.FocalPoint
}

// Preload loads every distinct source referenced by assets concurrently
// and returns a copy of the list with Media (and Focus when withFocus is
// set) filled in. The first failure cancels the rest.
func (l *Loader) Preload(ctx context.Context, assets []timeline.Asset, withFocus bool) ([]timeline.Asset, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var keys []assetKey
	index := make(map[assetKey]int)
	for _, a := range assets {
		k := assetKey{a.Kind, a.Source}
		if _, ok := index[k]; !ok {
			index[k] = len(keys)
			keys = append(keys, k)
		}
	}

	det := l.Detector
	if det == nil {
		det = analyzer.NewContrastDetector()
	}

	results := make([]loaded, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, k := range keys {
		g.Go(func() error {
			media, err := l.Load(gctx, k.kind, k.src)
			if err != nil {
				return err
			}
			results[i].media = media

			if withFocus && k.kind == timeline.KindImage {
				fp, err := analyzer.FocalPoint(det, media.FrameAt(0))
				if err != nil {
					return exporterr.AssetLoad("analyze "+k.src, err)
				}
				results[i].focus = fp
			}
			logger.Debug("asset loaded", zap.String("source", k.src), zap.Stringer("bounds", media.Bounds()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]timeline.Asset, len(assets))
	for i, a := range assets {
		r := results[index[assetKey{a.Kind, a.Source}]]
		a.Media = r.media
		a.Focus = r.focus
		out[i] = a
	}
	return out, nil
}

// Package renderer composites one output frame from the timeline.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/effects"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/ivlev/slidesync/internal/timeline"
	"github.com/ivlev/slidesync/internal/typography"
	"github.com/ivlev/slidesync/internal/visualizer"
	"golang.org/x/image/draw"
)

const (
	gradientShare = 0.4
	gradientAlpha = 0.7
)

// Frame is everything that varies from one output frame to the next.
// PrevFreq is the envelope of the preceding frame, nil for frame 0.
type Frame struct {
	Time      float64
	Assets    []timeline.Asset
	Subtitles []timeline.SubtitleLine
	Freq      []byte
	PrevFreq  []byte
}

// Renderer draws frames for one configuration. Its output depends on the
// Frame alone. A Renderer owns font faces and is not safe for concurrent
// use; parallel workers each create their own.
type Renderer struct {
	cfg           config.RenderConfig
	width, height int
	total         float64

	painter  *typography.Painter
	pool     *system.ImagePool
	bg       color.RGBA
	gradient *image.RGBA
}

// New creates a renderer. total is the audio duration, used as the end of
// the last slide; pass 0 when unknown. pool may be nil.
func New(cfg config.RenderConfig, total float64, pool *system.ImagePool) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	w, h := cfg.Orientation.Size()

	size, trSize := 64.0, 36.0
	if cfg.Orientation == config.Portrait {
		size, trSize = 58, 34
	}
	painter, err := typography.NewPainter(size, trSize, typography.Fonts{Regular: cfg.FontPath, Bold: cfg.BoldFontPath})
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = system.NewImagePool()
	}

	return &Renderer{
		cfg:      cfg,
		width:    w,
		height:   h,
		total:    total,
		painter:  painter,
		pool:     pool,
		bg:       cfg.Background(),
		gradient: bottomGradient(w, int(float64(h)*gradientShare)),
	}, nil
}

func (r *Renderer) Close() error {
	return r.painter.Close()
}

// Bounds of the frames produced.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Release hands a frame returned by Render back for reuse.
func (r *Renderer) Release(img *image.RGBA) {
	r.pool.Put(img)
}

// Render composites the frame at f.Time. Layers are painted in fixed order:
// background, assets, visualizer, gradient, subtitles, translation.
func (r *Renderer) Render(f Frame) *image.RGBA {
	dst := r.pool.Get(r.Bounds())
	layers := r.cfg.Layers

	fill := color.RGBA{}
	if layers.Background {
		fill = r.bg
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	slideEnd := math.Inf(1)
	if idx := timeline.ActiveIndex(f.Assets, f.Time); idx >= 0 {
		start, end := timeline.Window(f.Assets, idx, r.total, r.cfg.EndOfTimelinePadding)
		slideEnd = end
		if layers.Assets {
			r.drawAssets(dst, f, idx, start, end)
		}
	}

	if visualizer.Enabled(r.cfg) && len(f.Freq) > 0 {
		vc := r.cfg.Visualizer
		visualizer.Draw(dst, visualizer.Bars(f.Freq, f.PrevFreq, vc, r.width, r.height), vc)
	}

	if layers.Gradient {
		gb := r.gradient.Bounds()
		draw.Draw(dst, gb.Add(image.Pt(0, r.height-gb.Dy())), r.gradient, image.Point{}, draw.Over)
	}

	if layers.Subtitles || layers.Translation {
		r.drawText(dst, f, slideEnd)
	}
	return dst
}

func (r *Renderer) drawAssets(dst *image.RGBA, f Frame, idx int, start, end float64) {
	cur := f.Assets[idx]
	r.drawAsset(dst, cur, f.Time, start, end, 1, 0, 1)

	if !r.cfg.Layers.Transitions || idx+1 >= len(f.Assets) {
		return
	}
	st := effects.Transition(r.cfg.TransitionType, f.Time, start, end, r.cfg.TransitionDuration, r.width)
	if !st.Active {
		return
	}
	nStart, nEnd := timeline.Window(f.Assets, idx+1, r.total, r.cfg.EndOfTimelinePadding)
	r.drawAsset(dst, f.Assets[idx+1], f.Time, nStart, nEnd, st.NextScale, st.NextOffsetX, st.NextOpacity)
}

// drawAsset cover-fits one asset with its Ken Burns motion. extra scales the
// cover size further, offsetX shifts it horizontally.
func (r *Renderer) drawAsset(dst *image.RGBA, a timeline.Asset, t, start, end, extra, offsetX, opacity float64) {
	if a.Media == nil || opacity <= 0 {
		return
	}
	img := a.Media.FrameAt(math.Max(0, t-start))
	sb := img.Bounds()

	progress := effects.Progress(t, start, end)
	scale := 1.0
	if r.cfg.Layers.KenBurns {
		scale = effects.KenBurnsScale(t, start, end, r.cfg.ZoomMax)
	}
	var focus *timeline.FocalPoint
	if r.cfg.Pan {
		focus = a.Focus
	}

	p := effects.Cover(sb.Dx(), sb.Dy(), r.width, r.height, scale*extra, focus, progress)
	rect := image.Rect(
		int(math.Round(p.X+offsetX)), int(math.Round(p.Y)),
		int(math.Round(p.X+offsetX+p.W)), int(math.Round(p.Y+p.H)),
	)

	if opacity >= 1 {
		draw.ApproxBiLinear.Scale(dst, rect, img, sb, draw.Over, nil)
		return
	}

	clip := rect.Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	tmp := r.pool.Get(dst.Bounds())
	defer r.pool.Put(tmp)
	draw.Draw(tmp, clip, image.Transparent, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(tmp, rect, img, sb, draw.Src, nil)

	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(dst, clip, tmp, clip.Min, mask, image.Point{}, draw.Over)
}

func (r *Renderer) drawText(dst *image.RGBA, f Frame, slideEnd float64) {
	adjusted := f.Time + r.cfg.SyncOffsetMs/1000
	line, ok := timeline.ActiveSubtitle(f.Subtitles, adjusted)
	if !ok {
		return
	}

	opacity := 1.0
	if r.cfg.FadeOutBeforeCut && !math.IsInf(slideEnd, 1) {
		opacity = effects.FadeBeforeCut(f.Time, slideEnd)
	}
	if opacity <= 0 {
		return
	}

	margin := float64(r.cfg.Orientation.TextMargin())
	maxWidth := float64(r.width) - 2*margin
	h := float64(r.height)

	withTranslation := r.cfg.Layers.Translation && line.Translation != ""
	bottom := h * 0.9
	if withTranslation {
		bottom = h*0.93 - r.painter.TranslationLineHeight()*1.6
	}

	if r.cfg.Layers.Subtitles {
		ta := r.cfg.TextAnimation
		block := typography.Layout(line, adjusted, typography.Options{
			CanvasWidth: float64(r.width),
			MaxWidth:    maxWidth,
			PerWord:     ta.RevealDurationPerWord,
			WordLevel:   r.cfg.WordLevelHighlight,
			WordReveal:  ta.WordReveal,
			Direction:   ta.RevealDirection,
		}, r.painter)
		r.painter.DrawBlock(dst, block, bottom, opacity)
	}

	if withTranslation {
		r.painter.DrawTranslation(dst, line.Translation, float64(r.width), maxWidth, h*0.93, opacity)
	}
}

// bottomGradient is a black ramp from transparent at the top to
// gradientAlpha at the bottom.
func bottomGradient(w, h int) *image.RGBA {
	g := image.NewRGBA(image.Rect(0, 0, w, max(h, 1)))
	for y := 0; y < g.Rect.Dy(); y++ {
		a := uint8(math.Round(float64(y) / float64(max(h-1, 1)) * gradientAlpha * 255))
		row := g.Pix[y*g.Stride : y*g.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			row[x+3] = a
		}
	}
	return g
}

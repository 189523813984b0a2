// Package visualizer draws the mirrored frequency bars of music videos.
package visualizer

import (
	"image"
	"image/color"
	"math"

	"github.com/ivlev/slidesync/internal/config"
	"golang.org/x/image/draw"
)

// Bar is one bar in canvas pixels. Value is the smoothed magnitude (0-255)
// and Position the bar's distance from the center, 0 at the center and 1
// at the outermost bar.
type Bar struct {
	Rect     image.Rectangle
	Value    float64
	Position float64
}

// Enabled reports whether the visualizer layer takes part in the frame.
func Enabled(cfg config.RenderConfig) bool {
	return cfg.ContentMode == config.ModeMusic && cfg.Visualizer.Enabled && cfg.Layers.Visualizer
}

// Smooth averages each bin with the previous frame. A missing previous frame
// counts as equal to the current one.
func Smooth(cur, prev []byte) []float64 {
	out := make([]float64, len(cur))
	for i, v := range cur {
		p := v
		if i < len(prev) {
			p = prev[i]
		}
		out[i] = (float64(v) + float64(p)) / 2
	}
	return out
}

// Bars lays out the mirrored spectrum: bin 0 sits next to the vertical axis
// on both sides and higher bins move outward. Bins that do not fit on the
// canvas are dropped. Bars grow up from the bottom edge and never exceed
// MaxHeightRatio of the canvas height.
func Bars(cur, prev []byte, vc config.VisualizerConfig, width, height int) []Bar {
	if len(cur) == 0 || vc.BarWidth <= 0 {
		return nil
	}
	values := Smooth(cur, prev)

	step := vc.BarWidth + vc.BarGap
	perSide := min(len(values), (width/2)/step)
	if perSide == 0 {
		return nil
	}
	band := vc.MaxHeightRatio * float64(height)
	center := width / 2

	bars := make([]Bar, 0, perSide*2)
	for i := 0; i < perSide; i++ {
		h := int(math.Round(values[i] / 255 * band))
		h = max(0, min(h, int(band)))
		pos := 0.0
		if perSide > 1 {
			pos = float64(i) / float64(perSide-1)
		}

		off := vc.BarGap/2 + i*step
		right := image.Rect(center+off, height-h, center+off+vc.BarWidth, height)
		left := image.Rect(center-off-vc.BarWidth, height-h, center-off, height)
		bars = append(bars,
			Bar{Rect: left, Value: values[i], Position: pos},
			Bar{Rect: right, Value: values[i], Position: pos},
		)
	}
	return bars
}

// Draw paints bars onto dst at the configured opacity.
func Draw(dst *image.RGBA, bars []Bar, vc config.VisualizerConfig) {
	if vc.Opacity <= 0 {
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(vc.Opacity * 255))})
	for _, b := range bars {
		if b.Rect.Empty() {
			continue
		}
		switch vc.ColorScheme {
		case config.SchemeTwoTone:
			// base color below, tip color on the upper third of the bar
			tip := b.Rect.Dy() / 3
			base := image.Rect(b.Rect.Min.X, b.Rect.Min.Y+tip, b.Rect.Max.X, b.Rect.Max.Y)
			top := image.Rect(b.Rect.Min.X, b.Rect.Min.Y, b.Rect.Max.X, b.Rect.Min.Y+tip)
			draw.DrawMask(dst, base, image.NewUniform(twoToneBase), image.Point{}, mask, image.Point{}, draw.Over)
			draw.DrawMask(dst, top, image.NewUniform(twoToneTip), image.Point{}, mask, image.Point{}, draw.Over)
		case config.SchemeSpectrum:
			c := hsv(300*b.Position, 0.85, 1)
			draw.DrawMask(dst, b.Rect, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
		case config.SchemeMonochrome:
			draw.DrawMask(dst, b.Rect, image.NewUniform(color.White), image.Point{}, mask, image.Point{}, draw.Over)
		default:
			panic("visualizer: unhandled color scheme " + string(vc.ColorScheme))
		}
	}
}

var (
	twoToneBase = color.RGBA{R: 0, G: 220, B: 255, A: 255}
	twoToneTip  = color.RGBA{R: 255, G: 64, B: 200, A: 255}
)

// hsv converts h in degrees, s and v in [0, 1].
func hsv(h, s, v float64) color.RGBA {
	c := v * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := v - c
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

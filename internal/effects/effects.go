// Package effects holds the motion and transition math of the asset layer.
// Nothing here touches pixels.
package effects

import (
	"math"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/timeline"
)

// Progress is the clamped position of t inside [start, end].
func Progress(t, start, end float64) float64 {
	if end <= start {
		return 1
	}
	return clamp((t-start)/(end-start), 0, 1)
}

// KenBurnsScale grows linearly from 1 to 1+zoomMax over the slide.
func KenBurnsScale(t, start, end, zoomMax float64) float64 {
	return 1 + zoomMax*Progress(t, start, end)
}

// Placement is where a scaled source lands on the canvas, in canvas pixels.
// X and Y may be negative: the overflow is cropped.
type Placement struct {
	X, Y, W, H float64
}

// Cover fits a srcW×srcH picture over a dstW×dstH canvas so that it covers
// it completely, multiplies that by scale, and centers it. With a focal
// point the crop drifts from the center toward the point as progress goes
// from 0 to 1, without ever uncovering the canvas.
func Cover(srcW, srcH, dstW, dstH int, scale float64, focus *timeline.FocalPoint, progress float64) Placement {
	if srcW <= 0 || srcH <= 0 {
		return Placement{W: float64(dstW), H: float64(dstH)}
	}
	fit := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH)) * scale
	w, h := float64(srcW)*fit, float64(srcH)*fit

	x := (float64(dstW) - w) / 2
	y := (float64(dstH) - h) / 2

	if focus != nil {
		e := easeInOutCubic(clamp(progress, 0, 1))
		fx := clamp(float64(dstW)/2-focus.X*w, float64(dstW)-w, 0)
		fy := clamp(float64(dstH)/2-focus.Y*h, float64(dstH)-h, 0)
		x = lerp(x, fx, e)
		y = lerp(y, fy, e)
	}

	return Placement{X: x, Y: y, W: w, H: h}
}

// TransitionState describes how the incoming asset is drawn over the current one.
type TransitionState struct {
	Active   bool
	Progress float64

	NextOpacity float64
	NextOffsetX float64 // horizontal shift in pixels
	NextScale   float64 // multiplier on the cover size
}

// Transition evaluates the blend between the current slide, which ends at
// slideEnd, and the next one. The window is the final duration seconds of
// the slide, clamped to the slide's own length.
func Transition(kind config.TransitionType, t, slideStart, slideEnd, duration float64, width int) TransitionState {
	window := math.Min(duration, slideEnd-slideStart)
	until := slideEnd - t
	if window <= 0 || until <= 0 || until > window {
		return TransitionState{}
	}
	p := 1 - until/window

	switch kind {
	case config.TransitionNone:
		return TransitionState{}
	case config.TransitionFade, config.TransitionDissolve:
		return TransitionState{Active: true, Progress: p, NextOpacity: p, NextScale: 1}
	case config.TransitionSlide:
		return TransitionState{Active: true, Progress: p, NextOpacity: 1, NextOffsetX: (1 - p) * float64(width), NextScale: 1}
	case config.TransitionZoom:
		return TransitionState{Active: true, Progress: p, NextOpacity: p, NextScale: 1 + 0.5*(1-p)}
	}
	panic("effects: unhandled transition type " + string(kind))
}

// FadeBeforeCut is the subtitle opacity over the last 300ms of a slide.
func FadeBeforeCut(t, slideEnd float64) float64 {
	const window = 0.3
	left := slideEnd - t
	if left >= window {
		return 1
	}
	return clamp(left/window, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

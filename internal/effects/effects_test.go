package effects

import (
	"math"
	"testing"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/timeline"
)

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestKenBurnsScale(t *testing.T) {
	tests := []struct {
		time float64
		want float64
	}{
		{-1, 1.0},
		{0, 1.0},
		{5, 1.075},
		{10, 1.15},
		{12, 1.15},
	}
	for _, tt := range tests {
		if got := KenBurnsScale(tt.time, 0, 10, 0.15); !approx(got, tt.want, 1e-9) {
			t.Errorf("KenBurnsScale(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

func TestCoverFillsCanvas(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
	}{
		{"wide", 4000, 1000},
		{"tall", 800, 3000},
		{"same aspect", 1280, 720},
		{"tiny", 16, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, scale := range []float64{1, 1.08, 1.15} {
				p := Cover(tt.srcW, tt.srcH, 1920, 1080, scale, nil, 0)
				if p.X > 1e-9 || p.Y > 1e-9 || p.X+p.W < 1920-1e-9 || p.Y+p.H < 1080-1e-9 {
					t.Errorf("scale %.2f leaves canvas uncovered: %+v", scale, p)
				}
				if !approx(p.X, (1920-p.W)/2, 1e-9) || !approx(p.Y, (1080-p.H)/2, 1e-9) {
					t.Errorf("scale %.2f not centered: %+v", scale, p)
				}
			}
		})
	}
}

func TestCoverPansTowardFocus(t *testing.T) {
	focus := &timeline.FocalPoint{X: 0.9, Y: 0.5}
	start := Cover(1920, 1080, 1920, 1080, 1.15, focus, 0)
	end := Cover(1920, 1080, 1920, 1080, 1.15, focus, 1)

	if end.X >= start.X {
		t.Errorf("expected crop to move left toward focus: start %.1f end %.1f", start.X, end.X)
	}
	if end.X < 1920-end.W-1e-9 {
		t.Errorf("pan uncovered the right edge: %+v", end)
	}
}

func TestTransitionDissolve(t *testing.T) {
	// assets at 0 and 10, window 1.5s
	tests := []struct {
		time       float64
		active     bool
		wantOpaque float64
	}{
		{8.0, false, 0},
		{8.49, false, 0},
		{9.0, true, 1 - 1.0/1.5},
		{9.8, true, 1 - 0.2/1.5},
		{9.25, true, 0.5},
		{9.999, true, 1 - 0.001/1.5},
	}
	for _, tt := range tests {
		st := Transition(config.TransitionDissolve, tt.time, 0, 10, 1.5, 1920)
		if st.Active != tt.active {
			t.Errorf("t=%.3f active=%v, want %v", tt.time, st.Active, tt.active)
			continue
		}
		if tt.active && !approx(st.NextOpacity, tt.wantOpaque, 1e-9) {
			t.Errorf("t=%.3f opacity=%.4f, want %.4f", tt.time, st.NextOpacity, tt.wantOpaque)
		}
	}
}

func TestTransitionKinds(t *testing.T) {
	at := 9.25 // halfway through a 1.5s window ending at 10

	if st := Transition(config.TransitionNone, at, 0, 10, 1.5, 1920); st.Active {
		t.Error("none must be a hard cut")
	}

	slide := Transition(config.TransitionSlide, at, 0, 10, 1.5, 1920)
	if slide.NextOpacity != 1 || !approx(slide.NextOffsetX, 960, 1e-9) {
		t.Errorf("slide = %+v", slide)
	}

	zoom := Transition(config.TransitionZoom, at, 0, 10, 1.5, 1920)
	if !approx(zoom.NextScale, 1.25, 1e-9) || !approx(zoom.NextOpacity, 0.5, 1e-9) {
		t.Errorf("zoom = %+v", zoom)
	}
}

func TestTransitionWindowClampedToSlide(t *testing.T) {
	// a 1s slide with a 1.5s transition blends over the whole slide
	st := Transition(config.TransitionFade, 4.5, 4, 5, 1.5, 1920)
	if !st.Active || !approx(st.Progress, 0.5, 1e-9) {
		t.Errorf("clamped window: %+v", st)
	}
}

func TestFadeBeforeCut(t *testing.T) {
	tests := []struct {
		time float64
		want float64
	}{
		{9.0, 1},
		{9.7, 1},
		{9.85, 0.5},
		{10, 0},
	}
	for _, tt := range tests {
		if got := FadeBeforeCut(tt.time, 10); !approx(got, tt.want, 1e-9) {
			t.Errorf("FadeBeforeCut(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

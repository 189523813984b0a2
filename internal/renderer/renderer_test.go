package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/source"
	"github.com/ivlev/slidesync/internal/timeline"
)

func solid(c color.Color, w, h int) *source.Still {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return source.NewStill(img)
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// near allows for rounding in the bilinear scaler.
func near(got, want color.RGBA) bool {
	d := func(a, b uint8) bool { return max(a, b)-min(a, b) <= 2 }
	return d(got.R, want.R) && d(got.G, want.G) && d(got.B, want.B)
}

// plainConfig keeps only the background and asset layers.
func plainConfig() config.RenderConfig {
	cfg := config.DefaultRenderConfig()
	cfg.Layers = config.Layers{Background: true, Assets: true, Transitions: true}
	return cfg
}

func scenarioAssets() []timeline.Asset {
	return []timeline.Asset{
		{StartTime: 0, Kind: timeline.KindImage, Source: "a", Media: solid(red, 320, 180)},
		{StartTime: 10, Kind: timeline.KindImage, Source: "b", Media: solid(blue, 320, 180)},
		{StartTime: 20, Kind: timeline.KindImage, Source: "c", Media: solid(red, 320, 180)},
	}
}

func newRenderer(t *testing.T, cfg config.RenderConfig, total float64) *Renderer {
	t.Helper()
	r, err := New(cfg, total, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRenderSize(t *testing.T) {
	for _, o := range []config.Orientation{config.Landscape, config.Portrait} {
		cfg := plainConfig()
		cfg.Orientation = o
		r := newRenderer(t, cfg, 25)
		img := r.Render(Frame{Time: 1, Assets: scenarioAssets()})
		w, h := o.Size()
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			t.Errorf("%s: got %v", o, img.Bounds())
		}
	}
}

func TestRenderDissolveScenario(t *testing.T) {
	cfg := plainConfig()
	cfg.TransitionType = config.TransitionDissolve
	cfg.TransitionDuration = 1.5
	r := newRenderer(t, cfg, 25)
	assets := scenarioAssets()

	before := r.Render(Frame{Time: 8.0, Assets: assets}).RGBAAt(960, 540)
	if !near(before, red) {
		t.Errorf("t=8.0 center = %v, want pure red", before)
	}

	// next opacity = 1 - 0.2/1.5
	mid := r.Render(Frame{Time: 9.8, Assets: assets}).RGBAAt(960, 540)
	if mid.B < 215 || mid.B > 227 || mid.R < 28 || mid.R > 40 {
		t.Errorf("t=9.8 center = %v, want about 13%% red / 87%% blue", mid)
	}

	after := r.Render(Frame{Time: 10.0, Assets: assets}).RGBAAt(960, 540)
	if !near(after, blue) {
		t.Errorf("t=10.0 center = %v, want pure blue", after)
	}
}

func TestRenderHardCut(t *testing.T) {
	cfg := plainConfig()
	cfg.TransitionType = config.TransitionNone
	r := newRenderer(t, cfg, 25)
	if c := r.Render(Frame{Time: 9.9, Assets: scenarioAssets()}).RGBAAt(960, 540); !near(c, red) {
		t.Errorf("hard cut blended: %v", c)
	}
}

func TestRenderSlideTransition(t *testing.T) {
	cfg := plainConfig()
	cfg.TransitionType = config.TransitionSlide
	cfg.TransitionDuration = 1
	r := newRenderer(t, cfg, 25)

	// halfway: the incoming slide covers the right half of the canvas
	img := r.Render(Frame{Time: 9.5, Assets: scenarioAssets()})
	if c := img.RGBAAt(480, 540); !near(c, red) {
		t.Errorf("left half = %v, want red", c)
	}
	if c := img.RGBAAt(1440, 540); !near(c, blue) {
		t.Errorf("right half = %v, want blue", c)
	}
}

func TestRenderDeterministic(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.ContentMode = config.ModeMusic
	cfg.Visualizer.Enabled = true
	r := newRenderer(t, cfg, 25)

	subs := []timeline.SubtitleLine{{ID: "1", StartTime: 9, EndTime: 12, Text: "over the boundary", Translation: "sobre el límite"}}
	freq := bytes.Repeat([]byte{200}, 64)
	prev := bytes.Repeat([]byte{100}, 64)
	f := Frame{Time: 9.7, Assets: scenarioAssets(), Subtitles: subs, Freq: freq, PrevFreq: prev}

	a := r.Render(f)
	first := append([]byte(nil), a.Pix...)
	r.Release(a)

	// a second renderer, and a frame rendered in between, change nothing
	other := newRenderer(t, cfg, 25)
	other.Render(Frame{Time: 3, Assets: scenarioAssets(), Subtitles: subs, Freq: prev})
	b := other.Render(f)

	if !bytes.Equal(first, b.Pix) {
		t.Fatal("identical inputs produced different frames")
	}
}

func TestRenderStoryModeIgnoresFrequencies(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.ContentMode = config.ModeStory
	cfg.Visualizer.Enabled = false
	r := newRenderer(t, cfg, 25)

	base := r.Render(Frame{Time: 2, Assets: scenarioAssets()})
	without := append([]byte(nil), base.Pix...)
	r.Release(base)

	with := r.Render(Frame{Time: 2, Assets: scenarioAssets(), Freq: bytes.Repeat([]byte{255}, 64)})
	if !bytes.Equal(without, with.Pix) {
		t.Error("visualizer drawn in story mode")
	}
}

func TestRenderVisualizerInMusicMode(t *testing.T) {
	cfg := plainConfig()
	cfg.ContentMode = config.ModeMusic
	cfg.Visualizer.Enabled = true
	cfg.Visualizer.ColorScheme = config.SchemeMonochrome
	cfg.Visualizer.Opacity = 1
	cfg.Layers.Visualizer = true
	r := newRenderer(t, cfg, 25)

	img := r.Render(Frame{Time: 2, Assets: scenarioAssets(), Freq: bytes.Repeat([]byte{255}, 64)})
	if c := img.RGBAAt(960+cfg.Visualizer.BarGap/2+1, 1079); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("bar pixel = %v", c)
	}
}

func TestSubtitleAboveGradient(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.Layers.Assets = false
	cfg.BackgroundColor = "#000000"
	cfg.FadeOutBeforeCut = false
	cfg.WordLevelHighlight = false
	r := newRenderer(t, cfg, 25)

	subs := []timeline.SubtitleLine{{ID: "1", StartTime: 0, EndTime: 5, Text: "IIIIIIII"}}
	img := r.Render(Frame{Time: 1, Subtitles: subs})

	// highlighted text is yellow; anything brighter than the gradient proves
	// the text was painted over it
	bright := false
	for y := 900; y < 1000 && !bright; y++ {
		for x := 0; x < 1920; x++ {
			if img.RGBAAt(x, y).R > 200 {
				bright = true
				break
			}
		}
	}
	if !bright {
		t.Error("no subtitle pixels found in the text band")
	}
}

func TestRenderFadeBeforeCutDimsText(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.Layers = config.Layers{Background: true, Subtitles: true}
	cfg.BackgroundColor = "#000000"
	cfg.WordLevelHighlight = false
	r := newRenderer(t, cfg, 25)

	subs := []timeline.SubtitleLine{{ID: "1", StartTime: 8, EndTime: 12, Text: "fading"}}
	maxR := func(img *image.RGBA) uint8 {
		var m uint8
		for i := 0; i < len(img.Pix); i += 4 {
			m = max(m, img.Pix[i])
		}
		return m
	}

	full := maxR(r.Render(Frame{Time: 9, Assets: scenarioAssets(), Subtitles: subs}))
	fading := maxR(r.Render(Frame{Time: 9.85, Assets: scenarioAssets(), Subtitles: subs}))
	if !(fading < full && fading > 0) {
		t.Errorf("fade: full=%d fading=%d", full, fading)
	}
}

func TestNewRejectsMissingFont(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.FontPath = "/nonexistent/NotoSansArabic.ttf"
	if _, err := New(cfg, 10, nil); err == nil {
		t.Error("New accepted a missing font file")
	}
}

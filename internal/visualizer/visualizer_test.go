package visualizer

import (
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/slidesync/internal/config"
)

func testConfig() config.VisualizerConfig {
	return config.VisualizerConfig{
		Enabled:        true,
		Opacity:        1,
		MaxHeightRatio: 0.2,
		BarWidth:       10,
		BarGap:         4,
		ColorScheme:    config.SchemeMonochrome,
	}
}

func TestEnabled(t *testing.T) {
	cfg := config.DefaultRenderConfig()
	cfg.ContentMode = config.ModeStory
	cfg.Visualizer.Enabled = false
	if Enabled(cfg) {
		t.Error("story mode with visualizer disabled must not draw")
	}

	cfg.ContentMode = config.ModeMusic
	if Enabled(cfg) {
		t.Error("disabled visualizer must not draw")
	}

	cfg.Visualizer.Enabled = true
	if !Enabled(cfg) {
		t.Error("music mode with visualizer enabled should draw")
	}

	cfg.Layers.Visualizer = false
	if Enabled(cfg) {
		t.Error("layer toggle ignored")
	}
}

func TestSmooth(t *testing.T) {
	got := Smooth([]byte{100, 200}, []byte{0, 100})
	if got[0] != 50 || got[1] != 150 {
		t.Errorf("Smooth = %v", got)
	}
	got = Smooth([]byte{100, 200}, nil)
	if got[0] != 100 || got[1] != 200 {
		t.Errorf("Smooth without previous = %v", got)
	}
}

func TestBarsMirroredAndBounded(t *testing.T) {
	vc := testConfig()
	cur := []byte{255, 128, 0, 255}
	bars := Bars(cur, cur, vc, 400, 300)

	if len(bars) != 8 {
		t.Fatalf("got %d bars, want 8", len(bars))
	}
	band := int(vc.MaxHeightRatio * 300)
	for i := 0; i < len(bars); i += 2 {
		l, r := bars[i].Rect, bars[i+1].Rect
		if l.Dy() != r.Dy() {
			t.Errorf("pair %d heights differ: %d vs %d", i/2, l.Dy(), r.Dy())
		}
		if 400-l.Max.X != r.Min.X {
			t.Errorf("pair %d not mirrored: %v %v", i/2, l, r)
		}
		if l.Dy() > band || l.Max.Y != 300 {
			t.Errorf("pair %d outside band: %v", i/2, l)
		}
	}
	if bars[0].Rect.Dy() != band {
		t.Errorf("full bin height = %d, want %d", bars[0].Rect.Dy(), band)
	}
	if bars[4].Rect.Dy() != 0 {
		t.Errorf("silent bin height = %d", bars[4].Rect.Dy())
	}
}

func TestBarsDropBinsThatDoNotFit(t *testing.T) {
	bars := Bars(make([]byte, 64), nil, testConfig(), 100, 100)
	// 50px per side / 14px step
	if len(bars) != 6 {
		t.Errorf("got %d bars, want 6", len(bars))
	}
}

func TestDrawSchemes(t *testing.T) {
	for _, scheme := range []config.ColorScheme{config.SchemeTwoTone, config.SchemeSpectrum, config.SchemeMonochrome} {
		t.Run(string(scheme), func(t *testing.T) {
			vc := testConfig()
			vc.ColorScheme = scheme
			dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
			Draw(dst, Bars([]byte{255, 255}, nil, vc, 200, 100), vc)

			c := dst.RGBAAt(100+vc.BarGap/2+1, 99)
			if c == (color.RGBA{}) {
				t.Error("bar pixel not painted")
			}
			if top := dst.RGBAAt(100+vc.BarGap/2+1, 0); top != (color.RGBA{}) {
				t.Errorf("pixel above band painted: %v", top)
			}
		})
	}
}

package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Orientation of the output canvas.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
)

func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case Landscape, Portrait:
		return o, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// Size returns the canvas dimensions for the orientation.
func (o Orientation) Size() (width, height int) {
	switch o {
	case Landscape:
		return 1920, 1080
	case Portrait:
		return 1080, 1920
	}
	panic(fmt.Sprintf("config: invalid orientation %q", string(o)))
}

// TextMargin is the horizontal margin kept free on each side of subtitle lines.
func (o Orientation) TextMargin() int {
	switch o {
	case Landscape:
		return 160
	case Portrait:
		return 80
	}
	panic(fmt.Sprintf("config: invalid orientation %q", string(o)))
}

func (o *Orientation) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseOrientation(n.Value)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// TransitionType is how one asset hands over to the next.
type TransitionType string

const (
	TransitionNone     TransitionType = "none"
	TransitionFade     TransitionType = "fade"
	TransitionDissolve TransitionType = "dissolve"
	TransitionZoom     TransitionType = "zoom"
	TransitionSlide    TransitionType = "slide"
)

func ParseTransitionType(s string) (TransitionType, error) {
	switch t := TransitionType(strings.ToLower(strings.TrimSpace(s))); t {
	case TransitionNone, TransitionFade, TransitionDissolve, TransitionZoom, TransitionSlide:
		return t, nil
	}
	return "", fmt.Errorf("unknown transition type %q", s)
}

func (t *TransitionType) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseTransitionType(n.Value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ColorScheme is a named visualizer palette.
type ColorScheme string

const (
	SchemeTwoTone    ColorScheme = "two-tone"
	SchemeSpectrum   ColorScheme = "spectrum"
	SchemeMonochrome ColorScheme = "monochrome"
)

func ParseColorScheme(s string) (ColorScheme, error) {
	switch c := ColorScheme(strings.ToLower(strings.TrimSpace(s))); c {
	case SchemeTwoTone, SchemeSpectrum, SchemeMonochrome:
		return c, nil
	}
	return "", fmt.Errorf("unknown color scheme %q", s)
}

func (c *ColorScheme) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseColorScheme(n.Value)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// RevealDirection of the karaoke wipe. Auto follows the script of the line.
type RevealDirection string

const (
	RevealAuto        RevealDirection = "auto"
	RevealLeftToRight RevealDirection = "ltr"
	RevealRightToLeft RevealDirection = "rtl"
)

func ParseRevealDirection(s string) (RevealDirection, error) {
	switch d := RevealDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case RevealAuto, RevealLeftToRight, RevealRightToLeft:
		return d, nil
	}
	return "", fmt.Errorf("unknown reveal direction %q", s)
}

func (d *RevealDirection) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseRevealDirection(n.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ContentMode tells music videos (visualizer allowed) from spoken stories.
type ContentMode string

const (
	ModeMusic ContentMode = "music"
	ModeStory ContentMode = "story"
)

func ParseContentMode(s string) (ContentMode, error) {
	switch m := ContentMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMusic, ModeStory:
		return m, nil
	}
	return "", fmt.Errorf("unknown content mode %q", s)
}

func (m *ContentMode) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseContentMode(n.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Layers toggles each compositor layer independently.
type Layers struct {
	Background  bool `yaml:"background"`
	Assets      bool `yaml:"assets"`
	KenBurns    bool `yaml:"ken_burns"`
	Transitions bool `yaml:"transitions"`
	Visualizer  bool `yaml:"visualizer"`
	Gradient    bool `yaml:"gradient"`
	Subtitles   bool `yaml:"subtitles"`
	Translation bool `yaml:"translation"`
}

type VisualizerConfig struct {
	Enabled        bool        `yaml:"enabled"`
	Opacity        float64     `yaml:"opacity"`
	MaxHeightRatio float64     `yaml:"max_height_ratio"`
	BarWidth       int         `yaml:"bar_width"`
	BarGap         int         `yaml:"bar_gap"`
	ColorScheme    ColorScheme `yaml:"color_scheme"`
}

type TextAnimationConfig struct {
	RevealDirection       RevealDirection `yaml:"reveal_direction"`
	RevealDurationPerWord float64         `yaml:"reveal_duration_per_word"`
	WordReveal            bool            `yaml:"word_reveal"`
}

// RenderConfig is everything the compositor needs besides the timeline itself.
type RenderConfig struct {
	Orientation          Orientation         `yaml:"orientation"`
	Layers               Layers              `yaml:"layers"`
	ContentMode          ContentMode         `yaml:"content_mode"`
	SyncOffsetMs         float64             `yaml:"sync_offset_ms"`
	FadeOutBeforeCut     bool                `yaml:"fade_out_before_cut"`
	WordLevelHighlight   bool                `yaml:"word_level_highlight"`
	TransitionType       TransitionType      `yaml:"transition_type"`
	TransitionDuration   float64             `yaml:"transition_duration"`
	ZoomMax              float64             `yaml:"zoom_max"`
	Pan                  bool                `yaml:"pan"`
	FocusDetector        string              `yaml:"focus_detector"` // contrast or center
	Visualizer           VisualizerConfig    `yaml:"visualizer"`
	TextAnimation        TextAnimationConfig `yaml:"text_animation"`
	BackgroundColor      string              `yaml:"background_color"`
	FontPath             string              `yaml:"font_path"`
	BoldFontPath         string              `yaml:"bold_font_path"`
	EndOfTimelinePadding float64             `yaml:"end_of_timeline_padding"`
}

const (
	DefaultZoomMax            = 0.15
	DefaultTransitionDuration = 1.5
)

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Orientation: Landscape,
		Layers: Layers{
			Background:  true,
			Assets:      true,
			KenBurns:    true,
			Transitions: true,
			Visualizer:  true,
			Gradient:    true,
			Subtitles:   true,
			Translation: true,
		},
		ContentMode:        ModeStory,
		FadeOutBeforeCut:   true,
		WordLevelHighlight: true,
		TransitionType:     TransitionDissolve,
		TransitionDuration: DefaultTransitionDuration,
		ZoomMax:            DefaultZoomMax,
		Visualizer: VisualizerConfig{
			Enabled:        false,
			Opacity:        0.6,
			MaxHeightRatio: 0.18,
			BarWidth:       12,
			BarGap:         4,
			ColorScheme:    SchemeTwoTone,
		},
		TextAnimation: TextAnimationConfig{
			RevealDirection: RevealAuto,
		},
		BackgroundColor:      "#0b0b10",
		EndOfTimelinePadding: 5,
	}
}

// Validate reports the first invalid field.
func (c RenderConfig) Validate() error {
	if _, err := ParseOrientation(string(c.Orientation)); err != nil {
		return err
	}
	if _, err := ParseContentMode(string(c.ContentMode)); err != nil {
		return err
	}
	if _, err := ParseTransitionType(string(c.TransitionType)); err != nil {
		return err
	}
	if _, err := ParseColorScheme(string(c.Visualizer.ColorScheme)); err != nil {
		return err
	}
	if _, err := ParseRevealDirection(string(c.TextAnimation.RevealDirection)); err != nil {
		return err
	}
	if c.TransitionDuration < 0 {
		return fmt.Errorf("transition_duration must not be negative")
	}
	if c.ZoomMax < 0 || c.ZoomMax > 1 {
		return fmt.Errorf("zoom_max must be within [0, 1]")
	}
	if c.Visualizer.Opacity < 0 || c.Visualizer.Opacity > 1 {
		return fmt.Errorf("visualizer.opacity must be within [0, 1]")
	}
	if c.Visualizer.MaxHeightRatio <= 0 || c.Visualizer.MaxHeightRatio > 1 {
		return fmt.Errorf("visualizer.max_height_ratio must be within (0, 1]")
	}
	if c.Visualizer.BarWidth <= 0 || c.Visualizer.BarGap < 0 {
		return fmt.Errorf("visualizer bar geometry must be positive")
	}
	if c.TextAnimation.RevealDurationPerWord < 0 {
		return fmt.Errorf("reveal_duration_per_word must not be negative")
	}
	if c.EndOfTimelinePadding <= 0 {
		return fmt.Errorf("end_of_timeline_padding must be positive")
	}
	if _, err := ParseHexColor(c.BackgroundColor); err != nil {
		return err
	}
	return nil
}

// Background returns the parsed background fill.
func (c RenderConfig) Background() color.RGBA {
	bg, err := ParseHexColor(c.BackgroundColor)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return bg
}

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

package typography

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	baseColor      = color.NRGBA{R: 255, G: 255, B: 255, A: 140}
	highlightColor = color.NRGBA{R: 255, G: 214, B: 72, A: 255}
	shadowColor    = color.NRGBA{A: 150}
	translateColor = color.NRGBA{R: 235, G: 235, B: 235, A: 220}
)

// Fonts names TrueType/OpenType files for the subtitle text. Empty paths
// fall back to the embedded Go fonts, which cover Latin, Greek and Cyrillic
// only; Arabic or Hebrew subtitles need a Regular font that has them. Bold
// defaults to Regular when only Regular is set.
type Fonts struct {
	Regular string
	Bold    string
}

// parsed fonts are shared; faces are not
var (
	fontMu    sync.Mutex
	fontCache = map[string]*opentype.Font{}
)

var embeddedFonts = sync.OnceValues(func() (fonts [2]*opentype.Font, err error) {
	if fonts[0], err = opentype.Parse(gobold.TTF); err != nil {
		return fonts, fmt.Errorf("failed to parse bold font: %w", err)
	}
	if fonts[1], err = opentype.Parse(goregular.TTF); err != nil {
		return fonts, fmt.Errorf("failed to parse regular font: %w", err)
	}
	return fonts, nil
})

// loadFont parses a font file once per path. For collections the first
// face is used.
func loadFont(path string) (*opentype.Font, error) {
	fontMu.Lock()
	defer fontMu.Unlock()
	if f, ok := fontCache[path]; ok {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		coll, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
		}
		if f, err = coll.Font(0); err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
		}
	}
	fontCache[path] = f
	return f, nil
}

// resolve returns the bold and regular fonts for fs.
func (fs Fonts) resolve() (bold, regular *opentype.Font, err error) {
	embedded, err := embeddedFonts()
	if err != nil {
		return nil, nil, err
	}
	bold, regular = embedded[0], embedded[1]

	if fs.Regular != "" {
		if regular, err = loadFont(fs.Regular); err != nil {
			return nil, nil, err
		}
		bold = regular
	}
	if fs.Bold != "" {
		if bold, err = loadFont(fs.Bold); err != nil {
			return nil, nil, err
		}
	}
	return bold, regular, nil
}

// Painter draws laid out subtitle blocks. It owns its font faces and must
// not be shared between goroutines.
type Painter struct {
	faces       [EmphasisLevels]font.Face
	translation font.Face
}

// NewPainter builds faces for body text of size px (one per emphasis level)
// and a regular face of translationSize px.
func NewPainter(size, translationSize float64, fonts Fonts) (*Painter, error) {
	bold, regular, err := fonts.resolve()
	if err != nil {
		return nil, err
	}

	p := &Painter{}
	for i := range p.faces {
		p.faces[i], err = opentype.NewFace(bold, &opentype.FaceOptions{
			Size:    size * EmphasisScale(i),
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
	}
	p.translation, err = opentype.NewFace(regular, &opentype.FaceOptions{
		Size:    translationSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return p, nil
}

func (p *Painter) Close() error {
	for _, f := range p.faces {
		f.Close()
	}
	return p.translation.Close()
}

// Advance implements Metrics with the unscaled body face.
func (p *Painter) Advance(s string) float64 {
	return toFloat(font.MeasureString(p.faces[0], s))
}

func (p *Painter) Space() float64 {
	return p.Advance(" ")
}

// LineHeight of the body face.
func (p *Painter) LineHeight() float64 {
	return toFloat(p.faces[0].Metrics().Height)
}

func (p *Painter) TranslationLineHeight() float64 {
	return toFloat(p.translation.Metrics().Height)
}

// DrawBlock paints b with its last row on the baseline bottom. opacity
// scales every layer of the text.
func (p *Painter) DrawBlock(dst *image.RGBA, b Block, bottom, opacity float64) {
	if opacity <= 0 || len(b.Slots) == 0 {
		return
	}
	lh := p.LineHeight()
	m := p.faces[EmphasisLevels-1].Metrics()
	ascent, descent := toFloat(m.Ascent), toFloat(m.Descent)

	for _, s := range b.Slots {
		if !s.Visible {
			continue
		}
		y := bottom - float64(b.Rows-1-s.Row)*lh

		face := p.faces[s.Emphasis]
		scaledW := toFloat(font.MeasureString(face, s.Visual))
		x := s.X - (scaledW-s.Width)/2

		drawString(dst, face, x+3, y+3, s.Visual, fade(shadowColor, opacity))
		if s.Progress < 1 {
			drawString(dst, face, x, y, s.Visual, fade(baseColor, opacity))
		}
		if s.Progress <= 0 {
			continue
		}

		x0, x1 := s.RevealSpan(b.WipeRTL)
		k := scaledW / math.Max(s.Width, 1)
		clip := image.Rect(
			int(math.Floor(x+(x0-s.X)*k)), int(math.Floor(y-ascent-4)),
			int(math.Ceil(x+(x1-s.X)*k)), int(math.Ceil(y+descent+4)),
		).Intersect(dst.Bounds())
		if clip.Empty() {
			continue
		}
		sub := dst.SubImage(clip).(*image.RGBA)

		if s.Progress < 1 {
			glow := 0.22
			radius := 2.0
			if s.Emphasis > 0 {
				glow, radius = 0.4, 3.0
			}
			gc := fade(highlightColor, opacity*glow)
			for _, d := range [][2]float64{{-radius, 0}, {radius, 0}, {0, -radius}, {0, radius}} {
				drawString(sub, face, x+d[0], y+d[1], s.Visual, gc)
			}
		}
		drawString(sub, face, x, y, s.Visual, fade(highlightColor, opacity))
	}
}

// DrawTranslation wraps and centers text with its last row on bottom.
func (p *Painter) DrawTranslation(dst *image.RGBA, text string, canvasW, maxWidth, bottom, opacity float64) {
	fields := strings.Fields(text)
	if opacity <= 0 || len(fields) == 0 {
		return
	}
	rtl := IsRTL(text)

	widths := make([]float64, len(fields))
	for i, f := range fields {
		fields[i] = VisualOrder(f)
		widths[i] = toFloat(font.MeasureString(p.translation, fields[i]))
	}
	space := toFloat(font.MeasureString(p.translation, " "))
	starts := Wrap(widths, space, maxWidth)
	lh := p.TranslationLineHeight()

	for r, first := range starts {
		last := len(fields)
		if r+1 < len(starts) {
			last = starts[r+1]
		}
		words := append([]string(nil), fields[first:last]...)
		if rtl {
			slices.Reverse(words)
		}
		line := strings.Join(words, " ")
		w := toFloat(font.MeasureString(p.translation, line))
		y := bottom - float64(len(starts)-1-r)*lh
		x := (canvasW - w) / 2

		drawString(dst, p.translation, x+2, y+2, line, fade(shadowColor, opacity))
		drawString(dst, p.translation, x, y, line, fade(translateColor, opacity))
	}
}

func drawString(dst *image.RGBA, face font.Face, x, y float64, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y)},
	}
	d.DrawString(s)
}

func fade(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * math.Max(0, math.Min(1, opacity))))
	return c
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

package typography

import (
	"github.com/ivlev/slidesync/internal/config"
	"github.com/ivlev/slidesync/internal/timeline"
)

// Metrics measures text in the face used for layout.
type Metrics interface {
	Advance(s string) float64
	Space() float64
}

// Options steers one layout pass.
type Options struct {
	CanvasWidth float64
	MaxWidth    float64

	PerWord    float64
	WordLevel  bool
	WordReveal bool
	Direction  config.RevealDirection
}

// Slot is one word placed on a row.
type Slot struct {
	Word     Word
	Visual   string
	Row      int
	X, Width float64
	Progress float64
	Emphasis int
	Visible  bool
}

// Block is a laid out subtitle line. RTL is the script direction used to
// order the words, WipeRTL the direction of the karaoke reveal.
type Block struct {
	Slots   []Slot
	Rows    int
	RTL     bool
	WipeRTL bool
}

// Wrap breaks widths greedily into rows no wider than maxWidth. A word wider
// than maxWidth gets a row of its own. It returns the index of the first
// word of each row.
func Wrap(widths []float64, space, maxWidth float64) []int {
	if len(widths) == 0 {
		return nil
	}
	starts := []int{0}
	lineW := widths[0]
	for i := 1; i < len(widths); i++ {
		if lineW+space+widths[i] > maxWidth {
			starts = append(starts, i)
			lineW = widths[i]
			continue
		}
		lineW += space + widths[i]
	}
	return starts
}

// WipeRTL resolves the effective reveal direction for text.
func WipeRTL(dir config.RevealDirection, text string) bool {
	switch dir {
	case config.RevealAuto:
		return IsRTL(text)
	case config.RevealLeftToRight:
		return false
	case config.RevealRightToLeft:
		return true
	}
	panic("typography: unhandled reveal direction " + string(dir))
}

// Layout places the words of line for time t. It never draws.
func Layout(line *timeline.SubtitleLine, t float64, opts Options, m Metrics) Block {
	words := Words(line)
	b := Block{
		RTL:     IsRTL(line.Text),
		WipeRTL: WipeRTL(opts.Direction, line.Text),
	}
	if len(words) == 0 {
		return b
	}

	widths := make([]float64, len(words))
	for i, w := range words {
		widths[i] = m.Advance(VisualOrder(w.Text))
	}
	space := m.Space()
	starts := Wrap(widths, space, opts.MaxWidth)
	b.Rows = len(starts)

	b.Slots = make([]Slot, len(words))
	for row, first := range starts {
		last := len(words)
		if row+1 < len(starts) {
			last = starts[row+1]
		}

		total := space * float64(last-first-1)
		for i := first; i < last; i++ {
			total += widths[i]
		}

		left := (opts.CanvasWidth - total) / 2
		right := left + total
		for i := first; i < last; i++ {
			s := Slot{Word: words[i], Visual: VisualOrder(words[i].Text), Row: row, Width: widths[i]}
			if b.RTL {
				s.X = right - widths[i]
				right = s.X - space
			} else {
				s.X = left
				left += widths[i] + space
			}

			if opts.WordLevel {
				s.Progress = Progress(words[i], t, opts.PerWord)
				s.Emphasis = EmphasisLevel(words[i], s.Progress)
			} else {
				s.Progress = 1
			}
			s.Visible = !(opts.WordReveal && opts.WordLevel && s.Progress == 0)
			b.Slots[i] = s
		}
	}
	return b
}

// RevealSpan is the horizontal extent of the highlighted part of a slot.
func (s Slot) RevealSpan(wipeRTL bool) (x0, x1 float64) {
	w := s.Width * s.Progress
	if wipeRTL {
		return s.X + s.Width - w, s.X + s.Width
	}
	return s.X, s.X + w
}

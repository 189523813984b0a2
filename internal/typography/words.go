package typography

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ivlev/slidesync/internal/timeline"
)

// Word is a token of a subtitle line with its reveal interval.
type Word struct {
	Text       string
	Start, End float64
}

func (w Word) Duration() float64 {
	return w.End - w.Start
}

// Words returns the timed tokens of line. Explicit word timings are used when
// the line carries at least two; otherwise each whitespace separated token
// gets the slice of [StartTime, EndTime] proportional to its rune offset in
// the text.
func Words(line *timeline.SubtitleLine) []Word {
	if len(line.Words) >= 2 {
		out := make([]Word, 0, len(line.Words))
		for _, w := range line.Words {
			if strings.TrimSpace(w.Word) == "" {
				continue
			}
			out = append(out, Word{Text: strings.TrimSpace(w.Word), Start: w.StartTime, End: w.EndTime})
		}
		return out
	}

	text := strings.TrimSpace(line.Text)
	if text == "" && len(line.Words) == 1 {
		text = strings.TrimSpace(line.Words[0].Word)
	}
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return nil
	}

	dur := line.EndTime - line.StartTime
	at := func(offset int) float64 {
		return line.StartTime + dur*float64(offset)/float64(total)
	}

	var out []Word
	offset := 0
	for _, f := range strings.Fields(text) {
		// advance over the separator preceding f
		idx := strings.Index(text, f)
		offset += utf8.RuneCountInString(text[:idx])
		n := utf8.RuneCountInString(f)
		out = append(out, Word{Text: f, Start: at(offset)})
		offset += n
		text = text[idx+len(f):]
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].End = out[i+1].Start
		} else {
			out[i].End = line.EndTime
		}
	}
	return out
}

// Progress is the reveal state of w at t, 0 before the word starts and 1
// once it is fully revealed. A positive perWord overrides the word's own
// duration as the reveal length.
func Progress(w Word, t, perWord float64) float64 {
	d := perWord
	if d <= 0 {
		d = w.Duration()
	}
	if d <= 0 {
		if t >= w.Start {
			return 1
		}
		return 0
	}
	p := (t - w.Start) / d
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

const (
	// EmphasisLevels is the number of pre-built face sizes, scale 1.00 to 1.08.
	EmphasisLevels   = 5
	emphasisMax      = 0.08
	emphasisMinWords = 0.5
)

// EmphasisLevel quantizes the scale boost of a long word while it reveals.
// The boost peaks halfway through the reveal.
func EmphasisLevel(w Word, progress float64) int {
	if w.Duration() <= emphasisMinWords || progress <= 0 || progress >= 1 {
		return 0
	}
	boost := math.Sin(math.Pi * progress)
	return int(math.Round(boost * float64(EmphasisLevels-1)))
}

// EmphasisScale is the face scale of an emphasis level.
func EmphasisScale(level int) float64 {
	return 1 + emphasisMax*float64(level)/float64(EmphasisLevels-1)
}

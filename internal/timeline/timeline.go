// Package timeline holds the immutable inputs of an export: the ordered
// visual assets and the word-timed subtitle lines.
package timeline

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// wordTolerance absorbs rounding in transcription timestamps.
const wordTolerance = 0.001

// AssetKind is the media type of an asset.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindVideo AssetKind = "video"
)

func ParseAssetKind(s string) (AssetKind, error) {
	switch k := AssetKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImage, KindVideo:
		return k, nil
	}
	return "", fmt.Errorf("unknown asset kind %q", s)
}

func (k *AssetKind) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseAssetKind(n.Value)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Media is a preloaded asset: a still or a decoded clip.
type Media interface {
	// FrameAt returns the picture shown t seconds after the asset became active.
	FrameAt(t float64) image.Image
	Bounds() image.Rectangle
}

// FocalPoint is a normalized position (0..1) inside an asset.
type FocalPoint struct {
	X, Y float64
}

type Asset struct {
	StartTime float64   `yaml:"start"`
	Kind      AssetKind `yaml:"kind"`
	Source    string    `yaml:"source"`

	Media Media       `yaml:"-"`
	Focus *FocalPoint `yaml:"-"`
}

type WordTiming struct {
	Word      string  `yaml:"word"`
	StartTime float64 `yaml:"start"`
	EndTime   float64 `yaml:"end"`
}

// Duration of the word in seconds.
func (w WordTiming) Duration() float64 {
	return w.EndTime - w.StartTime
}

type SubtitleLine struct {
	ID          string       `yaml:"id"`
	StartTime   float64      `yaml:"start"`
	EndTime     float64      `yaml:"end"`
	Text        string       `yaml:"text"`
	Translation string       `yaml:"translation,omitempty"`
	Words       []WordTiming `yaml:"words,omitempty"`
}

// Active reports whether t falls inside [StartTime, EndTime).
func (l SubtitleLine) Active(t float64) bool {
	return l.StartTime <= t && t < l.EndTime
}

// ValidateAssets checks the strict StartTime ordering of the asset list.
func ValidateAssets(assets []Asset) error {
	for i, a := range assets {
		if math.IsNaN(a.StartTime) || a.StartTime < 0 {
			return fmt.Errorf("asset %d: invalid start time %v", i, a.StartTime)
		}
		if a.Source == "" {
			return fmt.Errorf("asset %d: empty source", i)
		}
		if _, err := ParseAssetKind(string(a.Kind)); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		if i > 0 && a.StartTime <= assets[i-1].StartTime {
			return fmt.Errorf("asset %d: start time %.3f not after previous %.3f", i, a.StartTime, assets[i-1].StartTime)
		}
	}
	return nil
}

// ValidateSubtitles checks line bounds and that word timings tile each line.
func ValidateSubtitles(lines []SubtitleLine) error {
	for i, l := range lines {
		if !(l.StartTime < l.EndTime) {
			return fmt.Errorf("subtitle %q (%d): start %.3f not before end %.3f", l.ID, i, l.StartTime, l.EndTime)
		}
		if len(l.Words) == 0 {
			continue
		}
		if math.Abs(l.Words[0].StartTime-l.StartTime) > wordTolerance {
			return fmt.Errorf("subtitle %q: first word starts at %.3f, line at %.3f", l.ID, l.Words[0].StartTime, l.StartTime)
		}
		last := l.Words[len(l.Words)-1]
		if math.Abs(last.EndTime-l.EndTime) > wordTolerance {
			return fmt.Errorf("subtitle %q: last word ends at %.3f, line at %.3f", l.ID, last.EndTime, l.EndTime)
		}
		for j, w := range l.Words {
			if w.EndTime < w.StartTime {
				return fmt.Errorf("subtitle %q word %d: negative duration", l.ID, j)
			}
			if j > 0 && w.StartTime < l.Words[j-1].EndTime-wordTolerance {
				return fmt.Errorf("subtitle %q word %d: overlaps previous word", l.ID, j)
			}
		}
	}
	return nil
}

// ActiveIndex returns the index of the last asset whose StartTime <= t.
// Times before the first asset select index 0. An empty list yields -1.
func ActiveIndex(assets []Asset, t float64) int {
	if len(assets) == 0 {
		return -1
	}
	i := sort.Search(len(assets), func(i int) bool { return assets[i].StartTime > t })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Window returns the active interval [start, end) of asset idx. The last
// asset ends at total when it is known and later than its start, otherwise
// padding seconds after its start.
func Window(assets []Asset, idx int, total, padding float64) (start, end float64) {
	start = assets[idx].StartTime
	if idx+1 < len(assets) {
		return start, assets[idx+1].StartTime
	}
	if total > start {
		return start, total
	}
	return start, start + padding
}

// ActiveSubtitle returns the first line active at t.
func ActiveSubtitle(lines []SubtitleLine, t float64) (*SubtitleLine, bool) {
	for i := range lines {
		if lines[i].Active(t) {
			return &lines[i], true
		}
	}
	return nil, false
}

// FrameCount is the number of output frames for an audio duration.
func FrameCount(duration float64, fps int) int {
	if duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration*float64(fps) - 1e-9))
}

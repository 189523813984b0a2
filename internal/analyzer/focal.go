package analyzer

import (
	"image"

	"github.com/ivlev/slidesync/internal/timeline"
)

type centerDetector struct{}

func (centerDetector) Detect(image.Image) ([]Block, error) { return nil, nil }

// FocalPoint returns the normalized center of the largest region found by d.
// Pictures without any region fall back to their center.
func FocalPoint(d Detector, img image.Image) (*timeline.FocalPoint, error) {
	b := img.Bounds()
	if b.Empty() {
		return &timeline.FocalPoint{X: 0.5, Y: 0.5}, nil
	}
	blocks, err := d.Detect(img)
	if err != nil {
		return nil, err
	}

	best := -1
	for i, blk := range blocks {
		// ties keep the earliest block, scan order is deterministic
		if best < 0 || blk.Area() > blocks[best].Area() {
			best = i
		}
	}
	if best < 0 {
		return &timeline.FocalPoint{X: 0.5, Y: 0.5}, nil
	}

	r := blocks[best].Rect
	return &timeline.FocalPoint{
		X: (float64(r.Min.X+r.Max.X)/2 - float64(b.Min.X)) / float64(b.Dx()),
		Y: (float64(r.Min.Y+r.Max.Y)/2 - float64(b.Min.Y)) / float64(b.Dy()),
	}, nil
}

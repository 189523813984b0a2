package analyzer

import "image"

// Block is a detected region of interest.
type Block struct {
	Rect    image.Rectangle
	Density float64 // share of edge pixels inside Rect, 0.0-1.0
}

// Area of the block in pixels².
func (b Block) Area() int {
	return b.Rect.Dx() * b.Rect.Dy()
}

// Detector finds regions of interest in a picture.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

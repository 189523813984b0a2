package analyzer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// analysisWidth bounds the working resolution; focal points are normalized
// so the downscale does not change the result materially.
const analysisWidth = 320

// ContrastDetector implements edge-based region detection using Sobel operator
type ContrastDetector struct {
	MinBlockArea  int     // in pixels² at analysis resolution
	EdgeThreshold float64 // Gradient magnitude threshold
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  120,
		EdgeThreshold: 30.0,
	}
}

// Detect returns edge clusters in analysis coordinates, scaled back to the
// bounds of img.
func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	gray, factor := downscaleGray(img)
	edges := sobelEdgeDetection(gray, d.EdgeThreshold)
	dilated := dilate(edges, 5, 2)

	var blocks []Block
	for _, c := range findContours(dilated) {
		if c.rect.Dx()*c.rect.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{
			Rect:    scaleRect(c.rect, factor).Add(b.Min),
			Density: float64(c.pixels) / float64(c.rect.Dx()*c.rect.Dy()),
		})
	}
	return blocks, nil
}

// downscaleGray converts img to grayscale no wider than analysisWidth and
// returns the factor back to source pixels.
func downscaleGray(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	factor := 1.0
	w, h := b.Dx(), b.Dy()
	if w > analysisWidth {
		factor = float64(w) / analysisWidth
		w = analysisWidth
		h = int(math.Max(1, math.Round(float64(b.Dy())/factor)))
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	return gray, factor
}

func scaleRect(r image.Rectangle, f float64) image.Rectangle {
	return image.Rect(
		int(float64(r.Min.X)*f), int(float64(r.Min.Y)*f),
		int(math.Ceil(float64(r.Max.X)*f)), int(math.Ceil(float64(r.Max.Y)*f)),
	)
}

var (
	sobelX = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobelEdgeDetection applies Sobel operator to detect edges
func sobelEdgeDetection(gray *image.Gray, threshold float64) *image.Gray {
	bounds := gray.Bounds()
	edges := image.NewGray(bounds)

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sumX, sumY float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
					sumX += pixel * float64(sobelX[ky+1][kx+1])
					sumY += pixel * float64(sobelY[ky+1][kx+1])
				}
			}
			if math.Hypot(sumX, sumY) > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return edges
}

// dilate performs morphological dilation to connect nearby edges
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	copy(result.Pix, img.Pix)

	half := kernelSize / 2
	for iter := 0; iter < iterations; iter++ {
		temp := image.NewGray(bounds)
		for y := bounds.Min.Y + half; y < bounds.Max.Y-half; y++ {
			for x := bounds.Min.X + half; x < bounds.Max.X-half; x++ {
				var maxVal uint8
				for ky := -half; ky <= half && maxVal < 255; ky++ {
					for kx := -half; kx <= half; kx++ {
						if v := result.GrayAt(x+kx, y+ky).Y; v > maxVal {
							maxVal = v
						}
					}
				}
				temp.SetGray(x, y, color.Gray{Y: maxVal})
			}
		}
		result = temp
	}

	return result
}

type component struct {
	rect   image.Rectangle
	pixels int
}

// findContours finds bounding rectangles of connected white regions
func findContours(img *image.Gray) []component {
	bounds := img.Bounds()
	visited := make([]bool, bounds.Dx()*bounds.Dy())

	var out []component
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := (y-bounds.Min.Y)*bounds.Dx() + (x - bounds.Min.X)
			if img.GrayAt(x, y).Y > 128 && !visited[i] {
				out = append(out, floodFill(img, visited, x, y))
			}
		}
	}
	return out
}

// floodFill walks one 4-connected component from (startX, startY).
func floodFill(img *image.Gray, visited []bool, startX, startY int) component {
	bounds := img.Bounds()
	minX, minY := startX, startY
	maxX, maxY := startX, startY
	pixels := 0

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !p.In(bounds) {
			continue
		}
		i := (p.Y-bounds.Min.Y)*bounds.Dx() + (p.X - bounds.Min.X)
		if visited[i] || img.GrayAt(p.X, p.Y).Y <= 128 {
			continue
		}
		visited[i] = true
		pixels++

		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}

	return component{rect: image.Rect(minX, minY, maxX+1, maxY+1), pixels: pixels}
}

package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func canvasWithBox(w, h int, box image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(img, box, image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestContrastDetector(t *testing.T) {
	img := canvasWithBox(200, 200, image.Rect(50, 50, 150, 150))

	detector := NewContrastDetector()
	blocks, err := detector.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatal("Expected at least one block, got none")
	}

	block := blocks[0]
	if block.Rect.Dx() < 80 || block.Rect.Dy() < 80 {
		t.Errorf("Block too small: %v", block.Rect)
	}

	t.Logf("Detected %d blocks", len(blocks))
	for i, b := range blocks {
		t.Logf("Block %d: %v (density: %.2f)", i, b.Rect, b.Density)
	}
}

func TestFocalPointFollowsLargestRegion(t *testing.T) {
	// large picture exercises the downscale path
	img := canvasWithBox(1600, 900, image.Rect(1100, 100, 1500, 400))

	fp, err := FocalPoint(NewContrastDetector(), img)
	if err != nil {
		t.Fatalf("FocalPoint: %v", err)
	}
	if fp.X < 0.7 || fp.X > 0.9 || fp.Y < 0.1 || fp.Y > 0.35 {
		t.Errorf("focal point %+v, want near (0.81, 0.28)", fp)
	}
}

func TestFocalPointFlatImageIsCentered(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))

	fp, err := FocalPoint(NewContrastDetector(), img)
	if err != nil {
		t.Fatal(err)
	}
	if fp.X != 0.5 || fp.Y != 0.5 {
		t.Errorf("flat image focal point = %+v", fp)
	}
}

func TestFocalPointDeterministic(t *testing.T) {
	img := canvasWithBox(640, 360, image.Rect(40, 200, 200, 340))
	a, _ := FocalPoint(NewContrastDetector(), img)
	b, _ := FocalPoint(NewContrastDetector(), img)
	if *a != *b {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"", false}, // default
		{"center", false},
		{"ocr", true},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			detector, err := NewDetector(tt.variant)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if detector == nil {
					t.Error("Expected detector, got nil")
				}
			}
		})
	}
}

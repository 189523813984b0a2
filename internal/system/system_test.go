package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestImagePoolReusesBySize(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 64, 32)

	img := pool.Get(rect)
	if img.Rect != rect {
		t.Fatalf("got rect %v", img.Rect)
	}
	pool.Put(img)

	other := pool.Get(image.Rect(0, 0, 32, 64))
	if other.Rect.Dx() != 32 {
		t.Errorf("wrong size from pool: %v", other.Rect)
	}

	// foreign sizes are dropped silently
	pool.Put(image.NewRGBA(image.Rect(0, 0, 7, 7)))
	pool.Put(nil)
}

func TestRenderWorkers(t *testing.T) {
	tests := []struct {
		name       string
		requested  int
		frameBytes int
		window     int
		check      func(int) bool
	}{
		{"explicit one", 1, 1920 * 1080 * 4, 30, func(n int) bool { return n == 1 }},
		{"cpu default", 0, 1024, 1, func(n int) bool { return n >= 1 }},
		{"huge frames", 8, 1 << 50, 30, func(n int) bool { return n == 1 }},
		{"no budget info", 4, 0, 0, func(n int) bool { return n == 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderWorkers(tt.requested, tt.frameBytes, tt.window)
			if !tt.check(got) {
				t.Errorf("RenderWorkers(%d, %d, %d) = %d", tt.requested, tt.frameBytes, tt.window, got)
			}
			t.Logf("workers: %d", got)
		})
	}
}

func TestFindFFmpegMissingOverride(t *testing.T) {
	if _, err := FindFFmpeg("/nonexistent/ffmpeg-binary"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestFindLatestProject(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.yaml")
	fresh := filepath.Join(dir, "fresh.yml")
	for _, p := range []string{old, fresh, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte("version: \"1\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	got, err := FindLatestProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != fresh {
		t.Errorf("got %s, want %s", got, fresh)
	}

	if _, err := FindLatestProject(t.TempDir()); err == nil {
		t.Error("expected error for a directory without projects")
	}
}

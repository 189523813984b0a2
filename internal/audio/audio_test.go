package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/system"
)

func sine(freq float64, seconds float64) []float32 {
	n := int(seconds * SampleRate)
	pcm := make([]float32, n)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / SampleRate))
	}
	return pcm
}

func TestFFTExtractorShape(t *testing.T) {
	e := NewFFTExtractor()
	env := e.Extract(sine(440, 1), SampleRate, 30, 30)
	if len(env) != 30 {
		t.Fatalf("got %d frames", len(env))
	}
	for i, f := range env {
		if len(f) != 64 {
			t.Fatalf("frame %d has %d bins", i, len(f))
		}
	}
}

func TestFFTExtractorFindsTone(t *testing.T) {
	e := NewFFTExtractor()
	env := e.Extract(sine(440, 1), SampleRate, 30, 30)

	frame := env[15]
	peak := 0
	for b := range frame {
		if frame[b] > frame[peak] {
			peak = b
		}
	}
	// 440 Hz falls into FFT bin ~20 of 1024
	edges := bandEdges(64, 1024)
	if !(edges[peak] <= 21 && 20 < edges[peak+1]) {
		t.Errorf("loudest band %d covers bins [%d, %d)", peak, edges[peak], edges[peak+1])
	}
	if frame[peak] < 200 {
		t.Errorf("full-scale tone only reached %d", frame[peak])
	}
}

func TestFFTExtractorSilence(t *testing.T) {
	env := NewFFTExtractor().Extract(make([]float32, SampleRate), SampleRate, 30, 10)
	for i, f := range env {
		for b, v := range f {
			if v != 0 {
				t.Fatalf("silent frame %d bin %d = %d", i, b, v)
			}
		}
	}
}

func TestBandEdgesCoverSpectrum(t *testing.T) {
	edges := bandEdges(64, 1024)
	if edges[0] != 1 || edges[64] != 1025 {
		t.Errorf("edges span [%d, %d)", edges[0], edges[64])
	}
	for b := 1; b < len(edges); b++ {
		if edges[b] <= edges[b-1] {
			t.Fatalf("band %d empty: %v", b-1, edges[b-1:b+1])
		}
	}
}

func TestReadEnvelope(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "env.json")
	os.WriteFile(good, []byte("[[0, 128, 255], [10, 20, 30]]"), 0644)

	env, err := ReadEnvelope(good)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if len(env) != 2 || env[0][2] != 255 {
		t.Errorf("env = %v", env)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("- [0, 300]\n"), 0644)
	if _, err := ReadEnvelope(bad); err == nil {
		t.Error("out of range magnitude accepted")
	}
}

func TestFitEnvelope(t *testing.T) {
	env := [][]byte{{1, 2}, {3, 4}}
	if got := FitEnvelope(env, 1); len(got) != 1 {
		t.Errorf("truncate: %v", got)
	}
	got := FitEnvelope(env, 4)
	if len(got) != 4 || len(got[3]) != 2 || got[3][0] != 0 {
		t.Errorf("pad: %v", got)
	}
}

func TestTrackFormat(t *testing.T) {
	tests := map[string]string{
		"song.MP3":     "mp3",
		"voice.m4a":    "m4a",
		"mix.wav":      "wav",
		"stream?id=1":  "",
		"clip.aac?x=1": "aac",
		"no-extension": "",
	}
	for name, want := range tests {
		if got := (&Track{Name: name}).Format(); got != want {
			t.Errorf("Format(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	ffmpeg, err := system.FindFFmpeg("")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	_, err = Decode(context.Background(), ffmpeg, []byte("definitely not audio"))
	if !errors.Is(err, exporterr.ErrAudioDecode) {
		t.Errorf("expected audio decode error, got %v", err)
	}
}

func TestFetchMissingFile(t *testing.T) {
	_, err := Fetch(context.Background(), nil, filepath.Join(t.TempDir(), "nope.mp3"))
	if !errors.Is(err, exporterr.ErrAudioDecode) {
		t.Errorf("expected audio decode error, got %v", err)
	}
}

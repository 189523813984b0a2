// Package audio fetches and decodes the soundtrack and derives the per-frame
// frequency envelope from it.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/source"
)

// SampleRate of decoded PCM.
const SampleRate = 44100

// Track is a soundtrack as fetched, plus its decoded mono PCM.
type Track struct {
	Name     string
	Data     []byte
	PCM      []float32
	Duration float64
}

// Format is the container guessed from the track name, e.g. "mp3".
func (t *Track) Format() string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(t.Name), "."))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	return ext
}

// Fetch reads the audio source from a path or an http(s) URL.
func Fetch(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	data, err := source.Fetch(ctx, client, src)
	if err != nil {
		return nil, exporterr.AudioDecode("fetch "+src, err)
	}
	if len(data) == 0 {
		return nil, exporterr.AudioDecode("fetch "+src, fmt.Errorf("empty audio"))
	}
	return data, nil
}

// Decode pipes data through ffmpeg into mono float PCM at SampleRate.
func Decode(ctx context.Context, ffmpegPath string, data []byte) ([]float32, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-f", "f32le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, exporterr.AudioDecode("decode", fmt.Errorf("ffmpeg error: %v, output: %s", err, stderr.String()))
	}
	pcm := make([]float32, len(out)/4)
	for i := range pcm {
		pcm[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	if len(pcm) == 0 {
		return nil, exporterr.AudioDecode("decode", fmt.Errorf("no samples decoded"))
	}
	return pcm, nil
}

// Load fetches and decodes src.
func Load(ctx context.Context, ffmpegPath string, client *http.Client, src string) (*Track, error) {
	data, err := Fetch(ctx, client, src)
	if err != nil {
		return nil, err
	}
	pcm, err := Decode(ctx, ffmpegPath, data)
	if err != nil {
		return nil, err
	}
	return &Track{
		Name:     path.Base(src),
		Data:     data,
		PCM:      pcm,
		Duration: float64(len(pcm)) / SampleRate,
	}, nil
}

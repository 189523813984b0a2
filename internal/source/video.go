package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os/exec"
	"strconv"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// Clip is a decoded video asset: one JPEG per output frame, decoded on
// demand. Playback loops when the slide outlasts the clip.
type Clip struct {
	frames [][]byte
	fps    int
	bounds image.Rectangle
}

// NewClip wraps already extracted JPEG frames. Every frame is decoded once
// so a corrupt one fails the load instead of a frame in the middle of a render.
func NewClip(frames [][]byte, fps int) (*Clip, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("clip has no frames")
	}
	var bounds image.Rectangle
	for i, f := range frames {
		img, err := jpeg.Decode(bytes.NewReader(f))
		if err != nil {
			return nil, fmt.Errorf("clip frame %d: %w", i, err)
		}
		b := img.Bounds().Sub(img.Bounds().Min)
		if i == 0 {
			bounds = b
		} else if b != bounds {
			return nil, fmt.Errorf("clip frame %d is %v, frame 0 is %v", i, b.Size(), bounds.Size())
		}
	}
	return &Clip{frames: frames, fps: fps, bounds: bounds}, nil
}

func (c *Clip) Len() int { return len(c.frames) }

func (c *Clip) Bounds() image.Rectangle { return c.bounds }

// FrameAt decodes the frame shown t seconds into the slide. Frames were
// checked by NewClip; a failed decode here yields an empty picture.
func (c *Clip) FrameAt(t float64) image.Image {
	idx := 0
	if t > 0 {
		idx = int(math.Floor(t*float64(c.fps)+1e-9)) % len(c.frames)
	}
	img, err := jpeg.Decode(bytes.NewReader(c.frames[idx]))
	if err != nil {
		return image.NewRGBA(c.bounds)
	}
	return img
}

// extractFrames runs ffmpeg once over src and collects its frames, resampled
// to fps, as JPEG images.
func extractFrames(ctx context.Context, ffmpegPath, src string, fps int) ([][]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-an",
		"-vf", "fps=" + strconv.Itoa(fps),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction error: %v, output: %s", err, stderr.String())
	}
	return splitJPEGStream(out), nil
}

// splitJPEGStream cuts a concatenation of baseline JPEG images apart.
func splitJPEGStream(data []byte) [][]byte {
	var frames [][]byte
	for {
		start := bytes.Index(data, jpegSOI)
		if start < 0 {
			return frames
		}
		end := bytes.Index(data[start+2:], jpegEOI)
		if end < 0 {
			return frames
		}
		end += start + 2 + len(jpegEOI)
		frames = append(frames, data[start:end])
		data = data[end:]
	}
}

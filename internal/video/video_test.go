package video

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/ivlev/slidesync/internal/audio"
	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxArgs(t *testing.T) {
	tests := []struct {
		name        string
		opts        MuxOptions
		contains    []string
		notContains []string
	}{
		{
			name: "piped mp3 passthrough",
			opts: MuxOptions{FPS: 30, VideoInput: "pipe:0", AudioInput: "pipe:3", AudioFormat: "mp3", Output: "pipe:1", Fragmented: true},
			contains: []string{
				"-f image2pipe -c:v mjpeg -framerate 30 -i pipe:0 -i pipe:3",
				"-c:v libx264",
				"-pix_fmt yuv420p",
				"-c:a copy",
				"-shortest",
				"-movflags frag_keyframe+empty_moov -f mp4 pipe:1",
			},
			notContains: []string{"image2 -start_number"},
		},
		{
			name: "file sequence with wav",
			opts: MuxOptions{FPS: 30, VideoInput: "/tmp/s/%06d.jpg", AudioInput: "/tmp/s/audio.wav", AudioFormat: "wav",
				Encoder: "h264_nvenc", EncoderArgs: []string{"-cq", "23"}, Output: "/tmp/s/out.mp4"},
			contains: []string{
				"-f image2 -start_number 0 -framerate 30 -i /tmp/s/%06d.jpg",
				"-c:v h264_nvenc -cq 23",
				"-c:a aac -b:a 192k",
				"-movflags +faststart -f mp4 /tmp/s/out.mp4",
			},
			notContains: []string{"-c:a copy", "empty_moov"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := strings.Join(MuxArgs(tt.opts), " ")
			for _, s := range tt.contains {
				assert.Contains(t, line, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, line, s)
			}
			t.Logf("ffmpeg %s", line)
		})
	}
}

func testFrame(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// silentWAV builds a mono 16-bit PCM WAV file of the given length.
func silentWAV(seconds float64) []byte {
	const rate = 8000
	n := int(seconds * rate)
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	w(uint32(36 + n*2))
	buf.WriteString("WAVEfmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(1))
	w(uint32(rate))
	w(uint32(rate * 2))
	w(uint16(2))
	w(uint16(16))
	buf.WriteString("data")
	w(uint32(n * 2))
	buf.Write(make([]byte, n*2))
	return buf.Bytes()
}

func TestLocalEncoderRequiresOrder(t *testing.T) {
	enc := NewLocalEncoder("", nil)
	err := enc.WriteFrame(context.Background(), 0, []byte{1})
	assert.ErrorIs(t, err, exporterr.ErrEncode)

	enc.ffmpeg = "ffmpeg" // skip discovery
	require.NoError(t, enc.Start(context.Background(), &audio.Track{Name: "a.wav", Data: silentWAV(0.1)}))
	require.NoError(t, enc.WriteFrame(context.Background(), 0, []byte{1}))
	assert.ErrorIs(t, enc.WriteFrame(context.Background(), 2, []byte{1}), exporterr.ErrEncode)
}

func TestLocalEncoderFinalizeWithoutFrames(t *testing.T) {
	enc := NewLocalEncoder("", nil)
	_, err := enc.Finalize(context.Background(), 30)
	assert.ErrorIs(t, err, exporterr.ErrEncode)
}

func TestLocalEncoderProducesMP4(t *testing.T) {
	if _, err := system.FindFFmpeg(""); err != nil {
		t.Skip("ffmpeg not installed")
	}
	ctx := context.Background()

	enc := NewLocalEncoder("", nil)
	require.NoError(t, enc.Load(ctx))
	require.NoError(t, enc.Start(ctx, &audio.Track{Name: "silence.wav", Data: silentWAV(1)}))
	for i := 0; i < 30; i++ {
		c := color.RGBA{R: uint8(i * 8), G: 40, B: 90, A: 255}
		require.NoError(t, enc.WriteFrame(ctx, i, testFrame(t, c)))
	}

	blob, err := enc.Finalize(ctx, 30)
	require.NoError(t, err)
	require.Greater(t, len(blob.Data), 8)
	assert.Equal(t, "ftyp", string(blob.Data[4:8]))
	assert.Equal(t, "video/mp4", blob.MimeType)
}

func TestBackendsRejectEmptyAudio(t *testing.T) {
	track := &audio.Track{Name: "a.wav", PCM: make([]float32, 100)}

	local := NewLocalEncoder("", nil)
	local.ffmpeg = "ffmpeg"
	assert.ErrorIs(t, local.Start(context.Background(), track), exporterr.ErrAudioDecode)

	remote := NewRemoteEncoder("http://127.0.0.1:1", nil, 60, nil)
	assert.ErrorIs(t, remote.Start(context.Background(), track), exporterr.ErrAudioDecode)
	assert.Empty(t, remote.SessionID())
}

// Package video holds the encoder backends that turn a stream of JPEG
// frames plus the soundtrack into an MP4.
package video

import (
	"context"
	"strconv"

	"github.com/ivlev/slidesync/internal/audio"
)

// Blob is a finished video.
type Blob struct {
	Data     []byte
	MimeType string
}

// Backend receives frames in strictly increasing index order, starting at 0.
type Backend interface {
	// Load prepares the backend once per export.
	Load(ctx context.Context) error
	// Start opens a stream for the given soundtrack.
	Start(ctx context.Context, track *audio.Track) error
	WriteFrame(ctx context.Context, index int, jpeg []byte) error
	// Finalize muxes everything written so far.
	Finalize(ctx context.Context, fps int) (*Blob, error)
}

// MuxOptions describes one ffmpeg mux run.
type MuxOptions struct {
	FPS int

	// VideoInput is either "pipe:0" (JPEG stream on stdin) or an image2
	// file pattern such as "frames/%06d.jpg".
	VideoInput  string
	AudioInput  string
	AudioFormat string

	Encoder     string
	EncoderArgs []string

	Output     string
	Fragmented bool // required when Output is a pipe
}

// MuxArgs builds the ffmpeg arguments shared by the local encoder and the
// session server.
func MuxArgs(o MuxOptions) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	if o.VideoInput == "pipe:0" {
		args = append(args, "-f", "image2pipe", "-c:v", "mjpeg")
	} else {
		args = append(args, "-f", "image2", "-start_number", "0")
	}
	args = append(args,
		"-framerate", strconv.Itoa(o.FPS),
		"-i", o.VideoInput,
		"-i", o.AudioInput,
		"-map", "0:v:0",
		"-map", "1:a:0",
	)

	encoder := o.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-c:v", encoder)
	args = append(args, o.EncoderArgs...)
	args = append(args, "-pix_fmt", "yuv420p", "-r", strconv.Itoa(o.FPS))

	switch o.AudioFormat {
	case "aac", "mp3", "m4a":
		args = append(args, "-c:a", "copy")
	default:
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}

	args = append(args, "-shortest")
	if o.Fragmented {
		args = append(args, "-movflags", "frag_keyframe+empty_moov")
	} else {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-f", "mp4", o.Output)
	return args
}

// seekableAudio reports formats ffmpeg cannot demux from a pipe because
// their index may sit at the end of the file.
func seekableAudio(format string) bool {
	switch format {
	case "m4a", "mp4", "mov", "3gp":
		return true
	}
	return false
}

package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"syscall"

	"github.com/ivlev/slidesync/internal/audio"
	"github.com/ivlev/slidesync/internal/exporterr"
	"github.com/ivlev/slidesync/internal/system"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LocalEncoder muxes with a local ffmpeg process. Frames and audio are held
// in an in-memory filesystem until Finalize streams them to ffmpeg.
type LocalEncoder struct {
	ffmpegOverride string
	logger         *zap.Logger

	ffmpeg      string
	encoder     string
	encoderArgs []string

	fs        afero.Fs
	audioName string
	audioFmt  string
	frames    int
}

func NewLocalEncoder(ffmpegPath string, logger *zap.Logger) *LocalEncoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalEncoder{ffmpegOverride: ffmpegPath, logger: logger}
}

// Load locates ffmpeg and its best H.264 encoder. Later calls are no-ops.
func (e *LocalEncoder) Load(ctx context.Context) error {
	if e.ffmpeg != "" {
		return nil
	}
	p, err := system.FindFFmpeg(e.ffmpegOverride)
	if err != nil {
		return exporterr.Encode("load", err)
	}
	e.ffmpeg = p
	e.encoder, e.encoderArgs = system.GetBestH264Encoder(ctx, p)
	e.logger.Info("local encoder ready", zap.String("ffmpeg", p), zap.String("encoder", e.encoder))
	return nil
}

func (e *LocalEncoder) Start(ctx context.Context, track *audio.Track) error {
	if e.ffmpeg == "" {
		return exporterr.Encode("start", fmt.Errorf("encoder not loaded"))
	}
	if len(track.Data) == 0 {
		return exporterr.AudioDecode("start", fmt.Errorf("track %q has no encoded audio", track.Name))
	}
	e.fs = afero.NewMemMapFs()
	e.frames = 0
	e.audioFmt = track.Format()
	e.audioName = "audio." + e.audioFmt
	if err := afero.WriteFile(e.fs, e.audioName, track.Data, 0644); err != nil {
		return exporterr.Encode("start", err)
	}
	return nil
}

func framePath(index int) string {
	return path.Join("frames", fmt.Sprintf("%06d.jpg", index))
}

func (e *LocalEncoder) WriteFrame(ctx context.Context, index int, jpeg []byte) error {
	if e.fs == nil {
		return exporterr.Encode("write frame", fmt.Errorf("encoder not started"))
	}
	if index != e.frames {
		return exporterr.Encode("write frame", fmt.Errorf("frame %d out of order, expected %d", index, e.frames))
	}
	if err := afero.WriteFile(e.fs, framePath(index), jpeg, 0644); err != nil {
		return exporterr.Encode("write frame", err)
	}
	e.frames++
	return nil
}

// Finalize runs a single ffmpeg: frames go to stdin as an image2pipe
// stream, audio through fd 3, and the fragmented MP4 comes back on stdout.
func (e *LocalEncoder) Finalize(ctx context.Context, fps int) (*Blob, error) {
	if e.fs == nil || e.frames == 0 {
		return nil, exporterr.Encode("finalize", fmt.Errorf("no frames written"))
	}
	defer func() { e.fs = nil }()

	opts := MuxOptions{
		FPS:         fps,
		VideoInput:  "pipe:0",
		AudioInput:  "pipe:3",
		AudioFormat: e.audioFmt,
		Encoder:     e.encoder,
		EncoderArgs: e.encoderArgs,
		Output:      "pipe:1",
		Fragmented:  true,
	}

	if seekableAudio(e.audioFmt) {
		spill, err := e.spillAudio()
		if err != nil {
			return nil, exporterr.Encode("finalize", err)
		}
		defer os.Remove(spill)
		opts.AudioInput = spill
	}

	cmd := exec.CommandContext(ctx, e.ffmpeg, MuxArgs(opts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, exporterr.Encode("finalize", fmt.Errorf("stdin pipe error: %w", err))
	}

	var audioR, audioW *os.File
	if opts.AudioInput == "pipe:3" {
		audioR, audioW, err = os.Pipe()
		if err != nil {
			return nil, exporterr.Encode("finalize", err)
		}
		cmd.ExtraFiles = []*os.File{audioR}
	}

	err = cmd.Start()
	if audioR != nil {
		// the child holds its own copy; ours would keep the pipe open after ffmpeg exits
		audioR.Close()
	}
	if err != nil {
		if audioW != nil {
			audioW.Close()
		}
		return nil, exporterr.Encode("finalize", fmt.Errorf("ffmpeg start error: %w", err))
	}

	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		for i := 0; i < e.frames; i++ {
			data, err := afero.ReadFile(e.fs, framePath(i))
			if err != nil {
				return err
			}
			if _, err := stdin.Write(data); err != nil {
				return feedError(fmt.Errorf("write frame %d: %w", i, err))
			}
		}
		return nil
	})
	if audioW != nil {
		g.Go(func() error {
			defer audioW.Close()
			f, err := e.fs.Open(e.audioName)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(audioW, f)
			return feedError(err)
		})
	}

	feedErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return nil, exporterr.Encode("finalize", fmt.Errorf("ffmpeg error: %v, output: %s", err, stderr.String()))
	}
	if feedErr != nil {
		return nil, exporterr.Encode("finalize", feedErr)
	}

	e.logger.Info("local mux complete", zap.Int("frames", e.frames), zap.Int("bytes", stdout.Len()))
	return &Blob{Data: stdout.Bytes(), MimeType: "video/mp4"}, nil
}

// feedError drops the broken pipe seen when ffmpeg stops reading an input
// early, e.g. once -shortest has ended the output. A real failure still
// shows up in ffmpeg's exit status.
func feedError(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// spillAudio copies the soundtrack to a temporary file for containers that
// ffmpeg must seek in.
func (e *LocalEncoder) spillAudio() (string, error) {
	data, err := afero.ReadFile(e.fs, e.audioName)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "slidesync-audio-*."+e.audioFmt)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

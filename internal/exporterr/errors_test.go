package exporterr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"asset", AssetLoad("load a.png", io.EOF), ErrAssetLoad},
		{"audio", AudioDecode("decode", io.ErrUnexpectedEOF), ErrAudioDecode},
		{"network", Network("chunk", errors.New("reset")), ErrNetwork},
		{"encode", Encode("ffmpeg", nil), ErrEncode},
		{"session", Session("finalize", nil), ErrSession},
		{"config", Config("validate", nil), ErrConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("export: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("expected %v to match %v", wrapped, tt.kind)
			}
			if KindOf(wrapped) != tt.kind {
				t.Errorf("KindOf = %v, want %v", KindOf(wrapped), tt.kind)
			}
			if errors.Is(wrapped, ErrNetwork) && tt.kind != ErrNetwork {
				t.Errorf("%v must not match ErrNetwork", wrapped)
			}
		})
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := AssetLoad("load cover.png", io.EOF)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("cause lost: %v", err)
	}
	if KindOf(io.EOF) != nil {
		t.Error("plain errors have no kind")
	}
}

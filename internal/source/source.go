// Package source turns asset source strings into preloaded media.
package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ivlev/slidesync/internal/timeline"
)

// Still is a single picture shown for the whole slide.
type Still struct {
	img image.Image
}

func NewStill(img image.Image) *Still {
	return &Still{img: img}
}

func (s *Still) FrameAt(float64) image.Image { return s.img }
func (s *Still) Bounds() image.Rectangle    { return s.img.Bounds() }

// IsRemote reports whether src is fetched over http(s).
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch reads a local path or an http(s) URL into memory.
func Fetch(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if !IsRemote(src) {
		return os.ReadFile(src)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", src, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeImage decodes a jpeg or png picture.
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// splitPage parses "deck.pdf#3" into the document path and a zero based
// page index. Page numbers in source strings start at 1.
func splitPage(src string) (path string, page int, ok bool) {
	i := strings.LastIndex(src, "#")
	if i < 0 || !strings.HasSuffix(strings.ToLower(src[:i]), ".pdf") {
		return "", 0, false
	}
	n, err := strconv.Atoi(src[i+1:])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return src[:i], n - 1, true
}

var _ timeline.Media = (*Still)(nil)

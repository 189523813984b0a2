package source

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// loadImage resolves an image asset source: a QR card, a PDF page, or a
// jpeg/png file or URL.
func (l *Loader) loadImage(ctx context.Context, src string) (image.Image, error) {
	if payload, ok := strings.CutPrefix(src, qrPrefix); ok {
		return renderQRCard(payload)
	}
	if path, page, ok := splitPage(src); ok {
		return renderPDFPage(path, page)
	}

	data, err := Fetch(ctx, l.Client, src)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

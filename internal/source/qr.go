package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	qrPrefix   = "qr:"
	qrCardSize = 1200
	qrCodeSize = 840
)

var qrCardBackground = color.RGBA{R: 16, G: 16, B: 22, A: 255}

// renderQRCard draws a call-to-action card: the payload as a QR code
// centered on a dark square.
func renderQRCard(payload string) (image.Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}

	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	code := q.Image(qrCodeSize)

	card := image.NewRGBA(image.Rect(0, 0, qrCardSize, qrCardSize))
	draw.Draw(card, card.Bounds(), image.NewUniform(qrCardBackground), image.Point{}, draw.Src)

	cb := code.Bounds()
	off := image.Pt((qrCardSize-cb.Dx())/2, (qrCardSize-cb.Dy())/2)
	draw.Draw(card, cb.Sub(cb.Min).Add(off), code, cb.Min, draw.Src)
	return card, nil
}

package model

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// DefaultMaxImagePixels bounds width*height before any pixel buffer is
// allocated.
const DefaultMaxImagePixels = 50_000_000

var ErrImageTooLarge = errors.New("image dimensions too large")

// DecodeImage decodes a JPEG, PNG or GIF and drops any alpha channel,
// keeping the straight (non-premultiplied) color values. Images with more
// than maxPixels pixels are rejected from their header alone; maxPixels <= 0
// disables the check.
func DecodeImage(r io.Reader, maxPixels int64) (*image.RGBA, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return ToRGB(img), format, nil
}

// ToRGB returns an opaque copy of img anchored at the origin.
//
// Fully transparent pixels become black. This includes GIF pixels using the
// transparent palette index, since image/gif replaces that palette entry
// with transparent black when decoding.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

package imagerender

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/rs/zerolog/log"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// MaxQuality is the highest JPEG quality the encoder accepts.
const MaxQuality = 100

// Renderer rasterizes a 1-based page.
type Renderer interface {
	Render(pageNum int, dpi float64) (image.Image, error)
}

// RenderPageToJPEG renders a page as JPEG image (in-memory)
// Returns JPEG bytes, width, height, error
func RenderPageToJPEG(r Renderer, pageNum, dpi, quality int, colorMode ColorMode) ([]byte, int, int, error) {
	img, err := r.Render(pageNum, float64(dpi))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Convert to desired color mode
	finalImg := img
	if colorMode == ColorGray {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, bounds.Min, draw.Src)
		finalImg = grayImg
	}
	log.Debug().
		Int("page", pageNum).
		Int("width", width).
		Int("height", height).
		Str("color", string(colorMode)).
		Msg("rendered page")

	jpegBytes, err := EncodeJPEG(finalImg, quality)
	if err != nil {
		return nil, 0, 0, err
	}

	log.Debug().
		Int("page", pageNum).
		Int("jpeg_size", len(jpegBytes)).
		Int("quality", quality).
		Int("dpi", dpi).
		Msg("encoded page as JPEG")

	return jpegBytes, width, height, nil
}

// EncodeJPEG encodes img; quality outside 1..100 means maximum quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > MaxQuality {
		quality = MaxQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the pixel data in RGBA format, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// DecodeImage decodes PNG, JPEG, BMP, TIFF or WebP bytes to RGBA pixel data.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - data: the encoded image
//
// Returns:
//   - *TextureStagingData: the decoded pixels and size
//   - error: error if the format is unknown or the data is corrupt
func DecodeImage(data []byte) (*TextureStagingData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return &TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// DecodeImageFile reads and decodes an image file to RGBA pixel data.
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - *TextureStagingData: the decoded pixels and size
//   - error: error if the file cannot be read or decoded
func DecodeImageFile(path string) (*TextureStagingData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	tex, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("texture file %s: %w", path, err)
	}
	return tex, nil
}

// DecodeImageSize reads only the header of an image file and returns its dimensions.
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - int: width in pixels
//   - int: height in pixels
//   - error: error if the file cannot be read or its format is unknown
func DecodeImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("texture file %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

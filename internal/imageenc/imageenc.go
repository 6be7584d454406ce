package imageenc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// Quality is the JPEG quality used when re-encoding images for upload.
const Quality = 90

// ErrUndecodable marks files that exist but are not a decodable image.
var ErrUndecodable = errors.New("image could not be decoded")

// LoadJPEG reads an image file and re-encodes it as an RGB JPEG, the format
// every describer accepts. Transparent areas are flattened onto white.
func LoadJPEG(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
	}

	data, err := EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode %s image: %w", format, err)
	}
	return data, nil
}

// EncodeJPEG flattens img onto a white background and encodes it as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

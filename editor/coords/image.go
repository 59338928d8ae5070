package coords

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes a decoded map image header.
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ReadImageInfo reads only the image header from r.
func ReadImageInfo(r io.Reader) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ConfigFromImage builds a Config whose image dimensions come from the image
// in r. The result is validated before it is returned.
func ConfigFromImage(r io.Reader, baseCellSize, zoneSize int, unrealWidth, unrealHeight float64) (Config, ImageInfo, error) {
	info, err := ReadImageInfo(r)
	if err != nil {
		return Config{}, ImageInfo{}, err
	}

	cfg := Config{
		ImageWidth:   info.Width,
		ImageHeight:  info.Height,
		UnrealWidth:  unrealWidth,
		UnrealHeight: unrealHeight,
		BaseCellSize: baseCellSize,
		ZoneSize:     zoneSize,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, info, err
	}
	return cfg, info, nil
}

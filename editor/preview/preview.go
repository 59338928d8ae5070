// Package preview rasterises a map's region overlay to a PNG thumbnail.
//
// Each cell becomes one pixel. Regions are composited in the order given with
// grid.RegionFillOpacity, so overlapping regions blend instead of hiding one
// another. The cell image is then scaled to the requested width with
// nearest-neighbour sampling to keep cell edges sharp.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/grid"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

const (
	// MaxWidth caps the output width.
	MaxWidth = 4096
	// Background is the colour of cells without regions.
	Background = "#1f2328"
)

// Image builds the preview image. width <= 0 renders one pixel per cell.
func Image(cfg coords.Config, regions []region.Region, width int) (image.Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cellsX, cellsY := cfg.CellsX(), cfg.CellsY()
	bg, _ := colorful.Hex(Background)
	cells := make([]colorful.Color, cellsX*cellsY)
	for i := range cells {
		cells[i] = bg
	}

	for _, r := range regions {
		fill, err := colorful.Hex(r.Color)
		if err != nil {
			fill, _ = colorful.Hex(region.ColorFor(r.ID))
		}
		for _, c := range r.Cells {
			if !cfg.Contains(c) {
				continue
			}
			i := c.Y*cellsX + c.X
			cells[i] = cells[i].BlendRgb(fill, grid.RegionFillOpacity)
		}
	}

	src := image.NewNRGBA(image.Rect(0, 0, cellsX, cellsY))
	for i, c := range cells {
		r, g, b := c.Clamped().RGB255()
		src.SetNRGBA(i%cellsX, i/cellsX, color.NRGBA{R: r, G: g, B: b, A: 255})
	}

	if width <= 0 || width == cellsX {
		return src, nil
	}
	width = min(width, MaxWidth)
	height := max(1, width*cellsY/cellsX)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// Render writes the preview as PNG.
func Render(w io.Writer, cfg coords.Config, regions []region.Region, width int) error {
	img, err := Image(cfg, regions, width)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

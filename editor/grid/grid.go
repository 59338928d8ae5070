// Package grid computes grid line and region overlay geometry.
//
// Nothing here draws. The output is plain geometry with opacity and stroke
// width so any rendering backend, or a test, can consume it.
package grid

import (
	"math"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

const (
	// SubdivisionsPerCell is the number of sub-grid steps per cell.
	SubdivisionsPerCell = 5
	// SubGridMinZoom is the zoom above which the sub-grid is emitted.
	SubGridMinZoom = 2.0

	MainOpacity = 0.35
	SubOpacity  = 0.12

	RegionFillOpacity   = 0.3
	BoundaryStrokeWidth = 2.0
	InteriorStrokeWidth = 0.5
)

// Kind distinguishes main grid lines from sub-grid lines.
type Kind string

const (
	Main Kind = "main"
	Sub  Kind = "sub"
)

// Line is one grid segment in map pixel space.
type Line struct {
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	Kind    Kind    `json:"kind"`
	Opacity float64 `json:"opacity"`
	Width   float64 `json:"width"`
}

// Lines returns grid lines covering a width x height area from the origin.
func Lines(width, height, cellSize, zoom float64) []Line {
	return LinesInRect(coords.Rect{Width: width, Height: height}, cellSize, zoom)
}

// LinesInRect returns grid lines inside rect. Main lines fall on every
// multiple of cellSize. When zoom > SubGridMinZoom, sub-grid lines are added
// at cellSize/5 spacing except where they coincide with a main line. Line
// widths are divided by zoom so strokes stay one screen pixel wide.
// Malformed input yields no lines.
func LinesInRect(rect coords.Rect, cellSize, zoom float64) []Line {
	if !valid(rect.X) || !valid(rect.Y) || !positive(rect.Width) || !positive(rect.Height) ||
		!positive(cellSize) || !positive(zoom) {
		return []Line{}
	}

	var lines []Line
	lines = appendAxis(lines, rect, cellSize, 1, Main, MainOpacity, 1/zoom)

	if zoom > SubGridMinZoom {
		step := cellSize / SubdivisionsPerCell
		lines = appendAxis(lines, rect, step, SubdivisionsPerCell, Sub, SubOpacity, 0.5/zoom)
	}
	return lines
}

// appendAxis emits vertical then horizontal lines at multiples of step.
// When skipEvery > 1, indices divisible by it are skipped.
func appendAxis(lines []Line, rect coords.Rect, step float64, skipEvery int, kind Kind, opacity, width float64) []Line {
	x0, x1 := rect.X, rect.X+rect.Width
	y0, y1 := rect.Y, rect.Y+rect.Height

	emit := func(lo, hi float64, line func(pos float64) Line) {
		first := int(math.Ceil(lo / step))
		last := int(math.Floor(hi / step))
		for i := first; i <= last; i++ {
			if skipEvery > 1 && i%skipEvery == 0 {
				continue
			}
			lines = append(lines, line(float64(i)*step))
		}
	}

	emit(x0, x1, func(x float64) Line {
		return Line{X1: x, Y1: y0, X2: x, Y2: y1, Kind: kind, Opacity: opacity, Width: width}
	})
	emit(y0, y1, func(y float64) Line {
		return Line{X1: x0, Y1: y, X2: x1, Y2: y, Kind: kind, Opacity: opacity, Width: width}
	})
	return lines
}

// CellStyle is the geometry of one region cell.
type CellStyle struct {
	Cell        coords.Cell `json:"cell"`
	Rect        coords.Rect `json:"rect"`
	Boundary    bool        `json:"boundary"`
	StrokeWidth float64     `json:"strokeWidth"`
}

// RegionLayer is the overlay geometry of one region.
type RegionLayer struct {
	RegionID    string      `json:"regionId"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	FillOpacity float64     `json:"fillOpacity"`
	Cells       []CellStyle `json:"cells"`
}

// RegionOverlay builds fill and stroke geometry for regions. Callers pass the
// overlay list, which already excludes the base region. Overlapping regions
// each get their own layer and blend through partial fill opacity.
func RegionOverlay(regions []region.Region, cfg coords.Config) ([]RegionLayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layers := make([]RegionLayer, 0, len(regions))
	for _, r := range regions {
		set := r.CellSet()
		layer := RegionLayer{
			RegionID:    r.ID,
			Name:        r.Name,
			Color:       r.Color,
			FillOpacity: RegionFillOpacity,
			Cells:       make([]CellStyle, 0, len(set)),
		}
		for _, c := range set.Sorted() {
			if !cfg.Contains(c) {
				continue
			}
			rect, err := coords.CellRect(c, cfg)
			if err != nil {
				return nil, err
			}
			boundary := region.IsCellOnBoundary(c, set, cfg)
			width := InteriorStrokeWidth
			if boundary {
				width = BoundaryStrokeWidth
			}
			layer.Cells = append(layer.Cells, CellStyle{Cell: c, Rect: rect, Boundary: boundary, StrokeWidth: width})
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

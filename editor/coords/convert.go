package coords

import "math"

// PixelToCell returns the cell containing pixel p. Out-of-range, negative and
// NaN inputs are clamped to the nearest valid cell.
func PixelToCell(p Pixel, cfg Config) (Cell, error) {
	if err := cfg.Validate(); err != nil {
		return Cell{}, err
	}
	size := float64(cfg.BaseCellSize)
	return Cell{
		X: clampInt(floorIndex(p.X/size), 0, cfg.CellsX()-1),
		Y: clampInt(floorIndex(p.Y/size), 0, cfg.CellsY()-1),
	}, nil
}

// CellToPixel returns the top-left pixel corner of cell.
func CellToPixel(cell Cell, cfg Config) (Pixel, error) {
	if err := cfg.Validate(); err != nil {
		return Pixel{}, err
	}
	size := float64(cfg.BaseCellSize)
	return Pixel{X: float64(cell.X) * size, Y: float64(cell.Y) * size}, nil
}

// CellCenter returns the pixel at the centre of cell.
func CellCenter(cell Cell, cfg Config) (Pixel, error) {
	p, err := CellToPixel(cell, cfg)
	if err != nil {
		return Pixel{}, err
	}
	half := float64(cfg.BaseCellSize) / 2
	return Pixel{X: p.X + half, Y: p.Y + half}, nil
}

// CellRect returns the pixel rectangle covered by cell.
func CellRect(cell Cell, cfg Config) (Rect, error) {
	p, err := CellToPixel(cell, cfg)
	if err != nil {
		return Rect{}, err
	}
	size := float64(cfg.BaseCellSize)
	return Rect{X: p.X, Y: p.Y, Width: size, Height: size}, nil
}

// PixelToWorld scales each axis independently by unreal/image extent.
// The pixel is clamped to the image first.
func PixelToWorld(p Pixel, cfg Config) (World, error) {
	if err := cfg.Validate(); err != nil {
		return World{}, err
	}
	return World{
		X: clampAxis(p.X, float64(cfg.ImageWidth)) * (cfg.UnrealWidth / float64(cfg.ImageWidth)),
		Y: clampAxis(p.Y, float64(cfg.ImageHeight)) * (cfg.UnrealHeight / float64(cfg.ImageHeight)),
	}, nil
}

// WorldToPixel is the inverse of PixelToWorld. The position is clamped to
// the world extent first.
func WorldToPixel(w World, cfg Config) (Pixel, error) {
	if err := cfg.Validate(); err != nil {
		return Pixel{}, err
	}
	return Pixel{
		X: clampAxis(w.X, cfg.UnrealWidth) * (float64(cfg.ImageWidth) / cfg.UnrealWidth),
		Y: clampAxis(w.Y, cfg.UnrealHeight) * (float64(cfg.ImageHeight) / cfg.UnrealHeight),
	}, nil
}

// CellOf returns the cell that holds p without clamping. It reports false
// for pixels left of or above the image, and for pixels in the strip past
// the last full cell when the image is not a multiple of the cell size.
func CellOf(p Pixel, cfg Config) (Cell, bool) {
	if cfg.Validate() != nil || math.IsNaN(p.X) || math.IsNaN(p.Y) || p.X < 0 || p.Y < 0 {
		return Cell{}, false
	}
	size := float64(cfg.BaseCellSize)
	x, y := math.Floor(p.X/size), math.Floor(p.Y/size)
	if x >= float64(cfg.CellsX()) || y >= float64(cfg.CellsY()) {
		return Cell{}, false
	}
	return Cell{X: int(x), Y: int(y)}, true
}

// CellToWorld returns the world position of the centre of cell.
func CellToWorld(cell Cell, cfg Config) (World, error) {
	p, err := CellCenter(cell, cfg)
	if err != nil {
		return World{}, err
	}
	return PixelToWorld(p, cfg)
}

// ZoneOf returns the zone containing cell.
func ZoneOf(cell Cell, cfg Config) (Zone, error) {
	if err := cfg.Validate(); err != nil {
		return Zone{}, err
	}
	cell = cfg.ClampCell(cell)
	return Zone{X: cell.X / cfg.ZoneSize, Y: cell.Y / cfg.ZoneSize}, nil
}

// floorIndex floors v to an int, mapping NaN and -Inf to 0 and +Inf to MaxInt32.
func floorIndex(v float64) int {
	switch {
	case math.IsNaN(v), math.IsInf(v, -1):
		return 0
	case math.IsInf(v, 1), v > math.MaxInt32:
		return math.MaxInt32
	case v < 0:
		return 0
	}
	return int(math.Floor(v))
}

// clampAxis clamps v to [0, hi], mapping NaN to 0.
func clampAxis(v, hi float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, hi)
}

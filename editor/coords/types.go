package coords

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// MaxTotalCells bounds the grid of one map (4096 x 4096 cells).
const MaxTotalCells = 1 << 24

// ErrConfiguration is matched by every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid coordinate configuration")

// Config is the persisted coordinate configuration of one map. It is set at
// map creation and never changes afterwards.
type Config struct {
	ImageWidth   int     `json:"imageWidth"`
	ImageHeight  int     `json:"imageHeight"`
	UnrealWidth  float64 `json:"unrealWidth"`
	UnrealHeight float64 `json:"unrealHeight"`
	BaseCellSize int     `json:"baseCellSize"`
	ZoneSize     int     `json:"zoneSize"`
}

// Cell is an integer grid coordinate.
type Cell struct {
	X int `json:"cellX"`
	Y int `json:"cellY"`
}

// Pixel is a position in source-image pixel space.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// World is a position in target-engine units.
type World struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is a coarse block of ZoneSize x ZoneSize cells.
type Zone struct {
	X int `json:"zoneX"`
	Y int `json:"zoneY"`
}

// Rect is an axis-aligned rectangle in pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ConfigurationError reports a Config field that violates its invariant.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%g %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any configuration error.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Validate checks every invariant of the config. The first violation is
// returned as a *ConfigurationError; use ValidateAll to collect all of them.
func (c Config) Validate() error {
	errs := multierr.Errors(c.ValidateAll())
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll returns every violation combined with multierr.
func (c Config) ValidateAll() error {
	var err error
	positive := func(field string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			err = multierr.Append(err, &ConfigurationError{Field: field, Value: v, Reason: "must be > 0"})
		}
	}
	positive("imageWidth", float64(c.ImageWidth))
	positive("imageHeight", float64(c.ImageHeight))
	positive("unrealWidth", c.UnrealWidth)
	positive("unrealHeight", c.UnrealHeight)
	positive("baseCellSize", float64(c.BaseCellSize))
	positive("zoneSize", float64(c.ZoneSize))
	if err != nil {
		return err
	}

	if c.ImageWidth < c.BaseCellSize {
		err = multierr.Append(err, &ConfigurationError{Field: "imageWidth", Value: float64(c.ImageWidth),
			Reason: fmt.Sprintf("must be at least one cell (%d px) wide", c.BaseCellSize)})
	}
	if c.ImageHeight < c.BaseCellSize {
		err = multierr.Append(err, &ConfigurationError{Field: "imageHeight", Value: float64(c.ImageHeight),
			Reason: fmt.Sprintf("must be at least one cell (%d px) high", c.BaseCellSize)})
	}
	if err != nil {
		return err
	}

	if cx, cy := c.CellsX(), c.CellsY(); cx > MaxTotalCells || cy > MaxTotalCells || cx*cy > MaxTotalCells {
		err = multierr.Append(err, &ConfigurationError{Field: "baseCellSize", Value: float64(c.BaseCellSize),
			Reason: fmt.Sprintf("gives %dx%d cells, more than %d", cx, cy, MaxTotalCells)})
	}
	return err
}

// CellsX returns floor(ImageWidth / BaseCellSize), or 0 for an invalid config.
func (c Config) CellsX() int {
	if c.BaseCellSize <= 0 || c.ImageWidth <= 0 {
		return 0
	}
	return c.ImageWidth / c.BaseCellSize
}

// CellsY returns floor(ImageHeight / BaseCellSize), or 0 for an invalid config.
func (c Config) CellsY() int {
	if c.BaseCellSize <= 0 || c.ImageHeight <= 0 {
		return 0
	}
	return c.ImageHeight / c.BaseCellSize
}

// TotalCells returns CellsX * CellsY.
func (c Config) TotalCells() int {
	return c.CellsX() * c.CellsY()
}

// ZonesX returns the number of zone columns, counting a partial zone.
func (c Config) ZonesX() int {
	if c.ZoneSize <= 0 {
		return 0
	}
	return (c.CellsX() + c.ZoneSize - 1) / c.ZoneSize
}

// ZonesY returns the number of zone rows, counting a partial zone.
func (c Config) ZonesY() int {
	if c.ZoneSize <= 0 {
		return 0
	}
	return (c.CellsY() + c.ZoneSize - 1) / c.ZoneSize
}

// Contains reports whether cell lies in the valid range of this map.
func (c Config) Contains(cell Cell) bool {
	return cell.X >= 0 && cell.Y >= 0 && cell.X < c.CellsX() && cell.Y < c.CellsY()
}

// ClampCell returns the nearest valid cell.
func (c Config) ClampCell(cell Cell) Cell {
	return Cell{
		X: clampInt(cell.X, 0, c.CellsX()-1),
		Y: clampInt(cell.Y, 0, c.CellsY()-1),
	}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Less orders cells row-major: by Y, then by X.
func (c Cell) Less(o Cell) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

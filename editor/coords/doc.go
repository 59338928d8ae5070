// Package coords provides the coordinate system of the map editor.
//
// The coords package converts between three spaces:
//   - Pixel space: positions in the source map image
//   - Cell space: integer grid cells of BaseCellSize pixels
//   - World space: target-engine units, linearly derived from pixel space
//
// Core Types:
//
// Config describes one map's image size, world extent, cell size and zone size.
// Cell, Pixel and World are the coordinate values of each space.
//
// Every conversion takes the Config explicitly and is pure. Rendering and
// hit-testing both go through these functions, so the renderer and pointer
// handling never disagree on which cell a point belongs to.
//
// Usage:
//
//	cfg := coords.Config{
//		ImageWidth: 4096, ImageHeight: 4096,
//		UnrealWidth: 409600, UnrealHeight: 409600,
//		BaseCellSize: 16, ZoneSize: 8,
//	}
//
//	cell, err := coords.PixelToCell(coords.Pixel{X: 130, Y: 70}, cfg)
//	if err != nil {
//		log.Fatal(err) // only a ConfigurationError is possible
//	}
//
// Error Handling:
//
// An invalid Config yields a *ConfigurationError from every conversion.
// Out-of-range or malformed pointer input (negative, NaN, past the edge) is
// clamped to the nearest valid cell and never fails.
package coords

// Package viewport manages zoom and pan of the map view.
//
// Screen position s and map pixel m are related by s = m*zoom + pan.
// While cell selection mode is active the viewport is locked at zoom 1.0 so
// that one screen pixel is exactly one source-image pixel; all zoom
// operations are no-ops until the lock is released.
package viewport

import (
	"math"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

const (
	MinZoom    = 0.1
	MaxZoom    = 10.0
	ZoomFactor = 1.1
)

// Point is a screen-space position or offset in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a screen-space extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// State is the serialisable viewport state.
type State struct {
	Zoom   float64 `json:"zoom"`
	Pan    Point   `json:"pan"`
	Locked bool    `json:"locked"`
}

// DefaultState returns zoom 1 with no pan.
func DefaultState() State {
	return State{Zoom: 1}
}

// EnterCellSelectionMode forces zoom to exactly 1.0, centres the map in the
// viewport and locks zooming.
func EnterCellSelectionMode(s State, viewport Size, cfg coords.Config) State {
	s.Zoom = 1
	s.Pan = centeredPan(viewport, cfg, 1)
	s.Locked = true
	return s
}

// ExitCellSelectionMode releases the zoom lock and keeps the current view.
func ExitCellSelectionMode(s State) State {
	s.Locked = false
	return s
}

// Controller owns a viewport State for one map.
type Controller struct {
	state    State
	viewport Size
	config   coords.Config
}

// NewController creates a controller at the default state.
func NewController(cfg coords.Config, viewport Size) *Controller {
	return &Controller{
		state:    DefaultState(),
		viewport: sanitizeSize(viewport),
		config:   cfg,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// SetState replaces the state, clamping zoom into range.
func (c *Controller) SetState(s State) {
	if s.Locked {
		s.Zoom = 1
	} else {
		s.Zoom = clampZoom(s.Zoom)
	}
	s.Pan = sanitizePoint(s.Pan)
	c.state = s
}

// ViewportSize returns the current viewport extent.
func (c *Controller) ViewportSize() Size {
	return c.viewport
}

// SetViewportSize records a resize. A locked viewport is re-centred.
func (c *Controller) SetViewportSize(size Size) {
	c.viewport = sanitizeSize(size)
	if c.state.Locked {
		c.state = EnterCellSelectionMode(c.state, c.viewport, c.config)
	}
}

// Locked reports whether zooming is currently disabled.
func (c *Controller) Locked() bool {
	return c.state.Locked
}

// EnterCellMode applies EnterCellSelectionMode to the controller.
func (c *Controller) EnterCellMode() {
	c.state = EnterCellSelectionMode(c.state, c.viewport, c.config)
}

// ExitCellMode applies ExitCellSelectionMode to the controller.
func (c *Controller) ExitCellMode() {
	c.state = ExitCellSelectionMode(c.state)
}

// ZoomIn multiplies zoom by ZoomFactor. It returns false when locked.
func (c *Controller) ZoomIn() bool {
	if c.state.Locked {
		return false
	}
	c.state.Zoom = clampZoom(c.state.Zoom * ZoomFactor)
	return true
}

// ZoomOut divides zoom by ZoomFactor. It returns false when locked.
func (c *Controller) ZoomOut() bool {
	if c.state.Locked {
		return false
	}
	c.state.Zoom = clampZoom(c.state.Zoom / ZoomFactor)
	return true
}

// ZoomAtPoint zooms by one step around the pointer so the map point under it
// stays fixed. A negative delta (wheel up) zooms in, a positive one zooms out.
func (c *Controller) ZoomAtPoint(delta float64, pointer Point) bool {
	if c.state.Locked || delta == 0 || math.IsNaN(delta) {
		return false
	}
	pointer = sanitizePoint(pointer)

	before := c.ScreenToMap(pointer)

	newZoom := c.state.Zoom * ZoomFactor
	if delta > 0 {
		newZoom = c.state.Zoom / ZoomFactor
	}
	newZoom = clampZoom(newZoom)

	c.state.Zoom = newZoom
	c.state.Pan = Point{
		X: pointer.X - before.X*newZoom,
		Y: pointer.Y - before.Y*newZoom,
	}
	return true
}

// FitToViewport sets zoom to the largest value (at most 1.0) that fits the
// whole image and centres it. The viewport size is remembered.
func (c *Controller) FitToViewport(viewport Size, cfg coords.Config) bool {
	if c.state.Locked {
		return false
	}
	c.viewport = sanitizeSize(viewport)
	c.config = cfg
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 || c.viewport.Width <= 0 || c.viewport.Height <= 0 {
		return false
	}

	zoom := math.Min(c.viewport.Width/float64(cfg.ImageWidth), c.viewport.Height/float64(cfg.ImageHeight))
	zoom = clampZoom(math.Min(zoom, 1.0))
	c.state.Zoom = zoom
	c.state.Pan = centeredPan(c.viewport, cfg, zoom)
	return true
}

// Fit is FitToViewport with the remembered viewport and config.
func (c *Controller) Fit() bool {
	return c.FitToViewport(c.viewport, c.config)
}

// ResetView restores zoom 1 and zero pan. In cell mode the view is re-centred
// instead, keeping the mode invariant.
func (c *Controller) ResetView() {
	if c.state.Locked {
		c.state = EnterCellSelectionMode(c.state, c.viewport, c.config)
		return
	}
	c.state.Zoom = 1
	c.state.Pan = Point{}
}

// Pan accumulates a drag delta. Panning is allowed in every mode.
func (c *Controller) Pan(dx, dy float64) {
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return
	}
	c.state.Pan.X += dx
	c.state.Pan.Y += dy
}

// ScreenToMap converts a screen position to map pixel space.
func (c *Controller) ScreenToMap(p Point) coords.Pixel {
	zoom := c.state.Zoom
	if zoom <= 0 || math.IsNaN(zoom) {
		zoom = 1
	}
	return coords.Pixel{
		X: (p.X - c.state.Pan.X) / zoom,
		Y: (p.Y - c.state.Pan.Y) / zoom,
	}
}

// MapToScreen converts a map pixel to a screen position.
func (c *Controller) MapToScreen(p coords.Pixel) Point {
	return Point{
		X: p.X*c.state.Zoom + c.state.Pan.X,
		Y: p.Y*c.state.Zoom + c.state.Pan.Y,
	}
}

// ScreenToCell is the hit-test used by pointer handlers. It clamps and never
// fails for a valid config.
func (c *Controller) ScreenToCell(p Point) (coords.Cell, error) {
	return coords.PixelToCell(c.ScreenToMap(sanitizePoint(p)), c.config)
}

func centeredPan(viewport Size, cfg coords.Config, zoom float64) Point {
	return Point{
		X: (viewport.Width - float64(cfg.ImageWidth)*zoom) / 2,
		Y: (viewport.Height - float64(cfg.ImageHeight)*zoom) / 2,
	}
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func sanitizePoint(p Point) Point {
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
		p.X = 0
	}
	if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		p.Y = 0
	}
	return p
}

func sanitizeSize(s Size) Size {
	if !(s.Width > 0) || math.IsInf(s.Width, 0) {
		s.Width = 0
	}
	if !(s.Height > 0) || math.IsInf(s.Height, 0) {
		s.Height = 0
	}
	return s
}

// Package controller owns the editor state of one open map and applies input
// events to it.
//
// Every input event is dispatched as an Action. Dispatch applies it
// synchronously to the viewport and selection engine, then notifies
// subscribers with a snapshot of the new State. Rendering reads that snapshot
// and never mutates the controller.
package controller

import (
	"strings"
	"sync"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/selection"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/viewport"
)

// Picker returns the id of the top-most non-base region covering cell.
type Picker func(cell coords.Cell) (regionID string, ok bool)

// Listener receives the state after every dispatched action.
type Listener func(State)

// State is the snapshot published to subscribers.
type State struct {
	MapID            string             `json:"map_id"`
	Mode             Mode               `json:"mode"`
	Viewport         viewport.State     `json:"viewport"`
	ViewportSize     viewport.Size      `json:"viewport_size"`
	ShowGrid         bool               `json:"show_grid"`
	Snap             bool               `json:"snap"`
	Hover            *coords.Cell       `json:"hover,omitempty"`
	SelectedRegionID string             `json:"selected_region_id,omitempty"`
	Selection        selection.Snapshot `json:"selection"`
	Panning          bool               `json:"panning"`
	Version          uint64             `json:"version"`
}

type gesture struct {
	active  bool
	cell    coords.Cell
	mods    selection.Modifiers
	moved   bool
	panning bool
	lastPos viewport.Point
}

// Controller is the single owner of one map's editor state.
type Controller struct {
	mapID  string
	config coords.Config
	picker Picker

	mode           Mode
	view           *viewport.Controller
	sel            *selection.Engine
	showGrid       bool
	snap           bool
	hover          coords.Cell
	hasHover       bool
	selectedRegion string
	spaceHeld      bool
	gesture        gesture
	version        uint64

	listeners map[int]Listener
	nextID    int
	mu        sync.Mutex
}

// New creates a controller for a map in cell mode. The config must be valid.
func New(mapID string, cfg coords.Config, viewportSize viewport.Size, picker Picker) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if picker == nil {
		picker = func(coords.Cell) (string, bool) { return "", false }
	}
	c := &Controller{
		mapID:     mapID,
		config:    cfg,
		picker:    picker,
		view:      viewport.NewController(cfg, viewportSize),
		sel:       selection.NewEngine(),
		showGrid:  true,
		listeners: make(map[int]Listener),
	}
	c.setMode(ModeCell)
	return c, nil
}

// MapID returns the map this controller edits.
func (c *Controller) MapID() string {
	return c.mapID
}

// Config returns the map's coordinate config.
func (c *Controller) Config() coords.Config {
	return c.config
}

// Subscribe registers fn for state updates. The returned func unsubscribes.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectedCells returns the committed selection in row-major order.
func (c *Controller) SelectedCells() []coords.Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.SelectedCells()
}

// SelectionBounds returns the bounding rectangle of the selection.
func (c *Controller) SelectionBounds() (selection.Bounds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Bounds()
}

// ScreenToCell converts a screen point with the current view.
func (c *Controller) ScreenToCell(p viewport.Point) (coords.Cell, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.ScreenToCell(p)
}

// VisibleRect returns the map pixel rectangle visible in the viewport,
// clipped to the image.
func (c *Controller) VisibleRect() coords.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := c.view.ViewportSize()
	tl := c.view.ScreenToMap(viewport.Point{})
	br := c.view.ScreenToMap(viewport.Point{X: size.Width, Y: size.Height})
	x0 := max(0, tl.X)
	y0 := max(0, tl.Y)
	x1 := min(float64(c.config.ImageWidth), br.X)
	y1 := min(float64(c.config.ImageHeight), br.Y)
	if x1 <= x0 || y1 <= y0 {
		return coords.Rect{}
	}
	return coords.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// SelectRegion marks a region as the picked region. An empty id clears it.
func (c *Controller) SelectRegion(id string) {
	c.mu.Lock()
	c.selectedRegion = id
	c.version++
	s := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()
	notify(listeners, s)
}

// Dispatch applies one action and notifies subscribers.
func (c *Controller) Dispatch(a Action) (State, error) {
	c.mu.Lock()
	if err := c.applyLocked(a); err != nil {
		c.mu.Unlock()
		return State{}, err
	}
	c.version++
	s := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notify(listeners, s)
	return s, nil
}

func (c *Controller) applyLocked(a Action) error {
	switch a.Type {
	case ActionSetMode:
		if !a.Mode.Valid() {
			return &InvalidActionError{Type: a.Type, Reason: "unknown mode " + string(a.Mode)}
		}
		c.setMode(a.Mode)
	case ActionPointerDown:
		c.pointerDown(a)
	case ActionPointerMove:
		c.pointerMove(a.Position)
	case ActionPointerUp:
		c.pointerUp(a)
	case ActionWheel:
		if c.mode != ModeCell {
			c.view.ZoomAtPoint(a.Delta, a.Position)
		}
	case ActionKeyDown:
		c.keyDown(a.Key, a.Modifiers)
	case ActionKeyUp:
		if isSpace(a.Key) {
			c.spaceHeld = false
		}
	case ActionResize:
		c.view.SetViewportSize(a.Size)
	case ActionZoomIn:
		c.view.ZoomIn()
	case ActionZoomOut:
		c.view.ZoomOut()
	case ActionResetView:
		c.view.ResetView()
	case ActionFit:
		c.view.Fit()
	case ActionSelectAll:
		if c.mode == ModeCell {
			return c.sel.SelectAll(c.config)
		}
	case ActionClearSelection:
		c.abortGesture()
		c.sel.ClearSelection()
	case ActionToggleGrid:
		c.showGrid = !c.showGrid
	case ActionToggleSnap:
		c.snap = !c.snap
	default:
		return &InvalidActionError{Type: a.Type, Reason: "unknown action type"}
	}
	return nil
}

// setMode performs the explicit mode transition. Entering cell mode locks the
// viewport at zoom 1.0; leaving it releases the lock. Any in-progress drag is
// discarded.
func (c *Controller) setMode(m Mode) {
	c.abortGesture()
	c.mode = m
	if m == ModeCell {
		c.view.EnterCellMode()
	} else {
		c.view.ExitCellMode()
	}
}

func (c *Controller) pointerDown(a Action) {
	if a.Button == ButtonMiddle || (a.Button == ButtonLeft && c.spaceHeld) {
		c.gesture = gesture{panning: true, lastPos: a.Position}
		return
	}
	if a.Button != ButtonLeft {
		return
	}

	cell, err := c.view.ScreenToCell(a.Position)
	if err != nil {
		return
	}
	c.hover, c.hasHover = cell, true
	c.gesture = gesture{active: true, cell: cell, mods: a.Modifiers, lastPos: a.Position}

	// Shift extends from the previous anchor on release, so it must not
	// start a drag that would move the anchor.
	if c.mode == ModeCell && !a.Modifiers.Shift {
		c.sel.StartSelection(cell, a.Modifiers.Toggle())
	}
}

func (c *Controller) pointerMove(p viewport.Point) {
	if c.gesture.panning {
		c.view.Pan(p.X-c.gesture.lastPos.X, p.Y-c.gesture.lastPos.Y)
		c.gesture.lastPos = p
	}

	cell, err := c.view.ScreenToCell(p)
	if err != nil {
		return
	}
	c.hover, c.hasHover = cell, true

	if !c.gesture.active || c.mode != ModeCell {
		return
	}
	if cell != c.gesture.cell {
		c.gesture.moved = true
	}
	if c.gesture.moved {
		c.sel.UpdateSelection(cell)
	}
}

func (c *Controller) pointerUp(a Action) {
	g := c.gesture
	c.gesture = gesture{}

	if g.panning || !g.active {
		return
	}

	if c.mode == ModePlacement {
		c.pick(g.cell)
		return
	}

	if g.moved && c.sel.Phase() == selection.Dragging {
		c.sel.EndSelection()
		return
	}

	if c.sel.Phase() == selection.Dragging {
		c.sel.Cancel()
	}
	target := g.cell
	if g.mods.Shift {
		if cell, err := c.view.ScreenToCell(a.Position); err == nil {
			target = cell
		}
	}
	c.sel.Click(target, g.mods)
	if !g.mods.Shift && !g.mods.Toggle() {
		c.pick(target)
	}
}

func (c *Controller) pick(cell coords.Cell) {
	if id, ok := c.picker(cell); ok {
		c.selectedRegion = id
	} else {
		c.selectedRegion = ""
	}
}

func (c *Controller) keyDown(key string, mods selection.Modifiers) {
	switch {
	case isSpace(key):
		c.spaceHeld = true
	case key == "Escape" || key == "Esc":
		if c.gesture.active && c.sel.Phase() == selection.Dragging {
			c.gesture = gesture{}
			c.sel.Cancel()
		} else {
			c.abortGesture()
			c.sel.Cancel()
		}
	case mods.Toggle() && strings.EqualFold(key, "a"):
		if c.mode == ModeCell {
			c.sel.SelectAll(c.config)
		}
	case mods.Toggle():
		// browser and OS shortcuts are not ours
	case strings.EqualFold(key, "g"):
		c.showGrid = !c.showGrid
	case strings.EqualFold(key, "s"):
		c.snap = !c.snap
	case key == "+" || key == "=":
		c.view.ZoomIn()
	case key == "-" || key == "_":
		c.view.ZoomOut()
	case key == "0":
		c.view.ResetView()
	case strings.EqualFold(key, "f"):
		c.view.Fit()
	}
}

func (c *Controller) abortGesture() {
	if c.sel.Phase() == selection.Dragging {
		c.sel.Cancel()
	}
	c.gesture = gesture{}
}

func (c *Controller) snapshotLocked() State {
	s := State{
		MapID:            c.mapID,
		Mode:             c.mode,
		Viewport:         c.view.State(),
		ViewportSize:     c.view.ViewportSize(),
		ShowGrid:         c.showGrid,
		Snap:             c.snap,
		SelectedRegionID: c.selectedRegion,
		Selection:        c.sel.Snapshot(false),
		Panning:          c.gesture.panning,
		Version:          c.version,
	}
	if c.hasHover {
		h := c.hover
		s.Hover = &h
	}
	return s
}

func (c *Controller) listenersLocked() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, s State) {
	for _, l := range listeners {
		l(s)
	}
}

func isSpace(key string) bool {
	return key == " " || key == "Space" || key == "Spacebar"
}

// Package selection implements the drag and click cell-selection state machine.
package selection

import (
	"sort"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

// Phase is the state of the selection engine.
type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase as its lowercase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Bounds is the axis-aligned rectangle of cells between Min and Max inclusive.
type Bounds struct {
	Min coords.Cell `json:"min"`
	Max coords.Cell `json:"max"`
}

// Span returns the rectangle spanned by two corner cells in any order.
func Span(a, b coords.Cell) Bounds {
	return Bounds{
		Min: coords.Cell{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		Max: coords.Cell{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

// Width is the number of columns in the rectangle.
func (b Bounds) Width() int { return b.Max.X - b.Min.X + 1 }

// Height is the number of rows in the rectangle.
func (b Bounds) Height() int { return b.Max.Y - b.Min.Y + 1 }

// Area is the number of cells in the rectangle.
func (b Bounds) Area() int { return b.Width() * b.Height() }

// Contains reports whether c lies inside the rectangle.
func (b Bounds) Contains(c coords.Cell) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X && c.Y >= b.Min.Y && c.Y <= b.Max.Y
}

// Cells expands the rectangle in row-major order.
func (b Bounds) Cells() []coords.Cell {
	cells := make([]coords.Cell, 0, b.Area())
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			cells = append(cells, coords.Cell{X: x, Y: y})
		}
	}
	return cells
}

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
	Shift bool `json:"shift,omitempty"`
}

// Toggle reports whether Ctrl or Cmd is held.
func (m Modifiers) Toggle() bool {
	return m.Ctrl || m.Meta
}

// Engine holds the committed selection and any in-progress drag.
// It is not safe for concurrent use; callers serialise input events.
type Engine struct {
	phase     Phase
	anchor    coords.Cell
	hasAnchor bool
	drag      Bounds
	additive  bool
	selected  map[coords.Cell]struct{}
}

// NewEngine returns an idle engine with an empty selection.
func NewEngine() *Engine {
	return &Engine{selected: make(map[coords.Cell]struct{})}
}

// Phase returns the current state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Anchor returns the cell where the last drag or click started.
func (e *Engine) Anchor() (coords.Cell, bool) {
	return e.anchor, e.hasAnchor
}

// DragBounds returns the in-progress rectangle while dragging.
func (e *Engine) DragBounds() (Bounds, bool) {
	if e.phase != Dragging {
		return Bounds{}, false
	}
	return e.drag, true
}

// StartSelection begins a drag at cell. With additive set the dragged
// rectangle is unioned into the current selection on commit instead of
// replacing it.
func (e *Engine) StartSelection(cell coords.Cell, additive bool) {
	e.phase = Dragging
	e.anchor = cell
	e.hasAnchor = true
	e.drag = Bounds{Min: cell, Max: cell}
	e.additive = additive
}

// UpdateSelection moves the free corner of the drag. It returns false when
// no drag is in progress.
func (e *Engine) UpdateSelection(cell coords.Cell) bool {
	if e.phase != Dragging {
		return false
	}
	e.drag = Span(e.anchor, cell)
	return true
}

// EndSelection commits the drag rectangle. It returns false when idle.
func (e *Engine) EndSelection() bool {
	if e.phase != Dragging {
		return false
	}
	if !e.additive {
		e.selected = make(map[coords.Cell]struct{}, e.drag.Area())
	}
	e.addBounds(e.drag)
	e.phase = Idle
	e.additive = false
	return true
}

// Cancel discards an uncommitted drag. When idle it clears the selection.
func (e *Engine) Cancel() {
	if e.phase == Dragging {
		e.phase = Idle
		e.additive = false
		e.drag = Bounds{}
		return
	}
	e.ClearSelection()
}

// Click applies a click without drag on cell.
//
//	plain        replace the selection with the single cell
//	Ctrl/Cmd     toggle the cell in the accumulated set
//	Shift        select the rectangle from the last anchor to cell
func (e *Engine) Click(cell coords.Cell, mods Modifiers) {
	if e.phase == Dragging {
		e.phase = Idle
		e.additive = false
	}

	switch {
	case mods.Toggle():
		if _, ok := e.selected[cell]; ok {
			delete(e.selected, cell)
		} else {
			e.selected[cell] = struct{}{}
		}
		e.anchor, e.hasAnchor = cell, true
	case mods.Shift && e.hasAnchor:
		rect := Span(e.anchor, cell)
		e.selected = make(map[coords.Cell]struct{}, rect.Area())
		e.addBounds(rect)
	default:
		e.selected = map[coords.Cell]struct{}{cell: {}}
		e.anchor, e.hasAnchor = cell, true
	}
}

// SelectAll selects every valid cell of the map described by cfg.
func (e *Engine) SelectAll(cfg coords.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.phase = Idle
	e.additive = false
	all := Bounds{Max: coords.Cell{X: cfg.CellsX() - 1, Y: cfg.CellsY() - 1}}
	e.selected = make(map[coords.Cell]struct{}, all.Area())
	e.addBounds(all)
	return nil
}

// ClearSelection empties the selection and returns to Idle.
func (e *Engine) ClearSelection() {
	e.phase = Idle
	e.additive = false
	e.drag = Bounds{}
	e.selected = make(map[coords.Cell]struct{})
}

// SelectedCells returns the selection in row-major order. While dragging it
// includes the in-progress rectangle so rendering can preview it.
func (e *Engine) SelectedCells() []coords.Cell {
	set := e.effective()
	cells := make([]coords.Cell, 0, len(set))
	for c := range set {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

// Count returns the number of selected cells.
func (e *Engine) Count() int {
	return len(e.effective())
}

// IsSelected reports whether c is part of the selection.
func (e *Engine) IsSelected(c coords.Cell) bool {
	if e.phase == Dragging && e.drag.Contains(c) {
		return true
	}
	if e.phase == Dragging && !e.additive {
		return false
	}
	_, ok := e.selected[c]
	return ok
}

// Bounds returns the bounding rectangle of the selection.
func (e *Engine) Bounds() (Bounds, bool) {
	set := e.effective()
	if len(set) == 0 {
		return Bounds{}, false
	}
	first := true
	var b Bounds
	for c := range set {
		if first {
			b = Bounds{Min: c, Max: c}
			first = false
			continue
		}
		b.Min.X = min(b.Min.X, c.X)
		b.Min.Y = min(b.Min.Y, c.Y)
		b.Max.X = max(b.Max.X, c.X)
		b.Max.Y = max(b.Max.Y, c.Y)
	}
	return b, true
}

// Snapshot is a serialisable view of the engine.
type Snapshot struct {
	Phase  Phase         `json:"phase"`
	Anchor *coords.Cell  `json:"anchor,omitempty"`
	Drag   *Bounds       `json:"drag,omitempty"`
	Bounds *Bounds       `json:"bounds,omitempty"`
	Count  int           `json:"count"`
	Cells  []coords.Cell `json:"cells,omitempty"`
}

// Snapshot captures the engine state. Cells are included only when
// withCells is set.
func (e *Engine) Snapshot(withCells bool) Snapshot {
	s := Snapshot{Phase: e.phase, Count: e.Count()}
	if e.hasAnchor {
		a := e.anchor
		s.Anchor = &a
	}
	if d, ok := e.DragBounds(); ok {
		s.Drag = &d
	}
	if b, ok := e.Bounds(); ok {
		s.Bounds = &b
	}
	if withCells {
		s.Cells = e.SelectedCells()
	}
	return s
}

func (e *Engine) effective() map[coords.Cell]struct{} {
	if e.phase != Dragging {
		return e.selected
	}
	out := make(map[coords.Cell]struct{}, e.drag.Area()+len(e.selected))
	if e.additive {
		for c := range e.selected {
			out[c] = struct{}{}
		}
	}
	for _, c := range e.drag.Cells() {
		out[c] = struct{}{}
	}
	return out
}

func (e *Engine) addBounds(b Bounds) {
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			e.selected[coords.Cell{X: x, Y: y}] = struct{}{}
		}
	}
}

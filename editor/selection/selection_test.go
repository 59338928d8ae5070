package selection

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

func cell(x, y int) coords.Cell {
	return coords.Cell{X: x, Y: y}
}

func TestDragSelectsRectangle(t *testing.T) {
	tests := []struct {
		name     string
		from, to coords.Cell
		min, max coords.Cell
	}{
		{"down-left drag", cell(5, 5), cell(2, 8), cell(2, 5), cell(5, 8)},
		{"up-right drag", cell(2, 8), cell(5, 5), cell(2, 5), cell(5, 8)},
		{"single cell", cell(3, 3), cell(3, 3), cell(3, 3), cell(3, 3)},
		{"row", cell(9, 0), cell(0, 0), cell(0, 0), cell(9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			e.StartSelection(tt.from, false)
			if e.Phase() != Dragging {
				t.Fatalf("Expected Dragging, got %s", e.Phase())
			}
			e.UpdateSelection(tt.to)
			if !e.EndSelection() {
				t.Fatal("EndSelection returned false")
			}
			if e.Phase() != Idle {
				t.Errorf("Expected Idle after commit, got %s", e.Phase())
			}

			want := Bounds{Min: tt.min, Max: tt.max}
			cells := e.SelectedCells()
			if len(cells) != want.Area() {
				t.Fatalf("Expected %d cells, got %d", want.Area(), len(cells))
			}
			seen := make(map[coords.Cell]bool)
			for _, c := range cells {
				if !want.Contains(c) {
					t.Errorf("Cell %v outside %+v", c, want)
				}
				if seen[c] {
					t.Errorf("Cell %v duplicated", c)
				}
				seen[c] = true
			}
		})
	}
}

func TestDragFromFiveFiveToTwoEight(t *testing.T) {
	e := NewEngine()
	e.StartSelection(cell(5, 5), false)
	e.UpdateSelection(cell(7, 7))
	e.UpdateSelection(cell(2, 8))
	e.EndSelection()

	cells := e.SelectedCells()
	if len(cells) != 16 {
		t.Fatalf("Expected 16 cells, got %d", len(cells))
	}
	if cells[0] != cell(2, 5) || cells[15] != cell(5, 8) {
		t.Errorf("Expected row-major order from (2,5) to (5,8), got %v..%v", cells[0], cells[15])
	}
	b, ok := e.Bounds()
	if !ok || b.Min != cell(2, 5) || b.Max != cell(5, 8) {
		t.Errorf("Unexpected bounds %+v", b)
	}
}

func TestDragPreview(t *testing.T) {
	e := NewEngine()
	e.Click(cell(0, 0), Modifiers{})
	e.StartSelection(cell(4, 4), false)
	e.UpdateSelection(cell(5, 5))

	if e.Count() != 4 {
		t.Errorf("Expected preview of 4 cells, got %d", e.Count())
	}
	if e.IsSelected(cell(0, 0)) {
		t.Error("Non-additive drag must not show the previous selection")
	}
	if d, ok := e.DragBounds(); !ok || d.Area() != 4 {
		t.Errorf("Unexpected drag bounds %+v", d)
	}
}

func TestAdditiveDrag(t *testing.T) {
	e := NewEngine()
	e.StartSelection(cell(0, 0), false)
	e.UpdateSelection(cell(1, 1))
	e.EndSelection()

	e.StartSelection(cell(1, 1), true)
	e.UpdateSelection(cell(2, 2))
	if !e.IsSelected(cell(0, 0)) {
		t.Error("Additive drag preview should keep accumulated cells")
	}
	e.EndSelection()

	// {0..1}x{0..1} union {1..2}x{1..2} = 4 + 4 - 1
	if e.Count() != 7 {
		t.Errorf("Expected 7 cells, got %d", e.Count())
	}
}

func TestClickSemantics(t *testing.T) {
	e := NewEngine()

	e.Click(cell(3, 3), Modifiers{})
	if e.Count() != 1 || !e.IsSelected(cell(3, 3)) {
		t.Fatal("Plain click should select exactly the clicked cell")
	}

	e.Click(cell(4, 4), Modifiers{})
	if e.Count() != 1 || !e.IsSelected(cell(4, 4)) || e.IsSelected(cell(3, 3)) {
		t.Fatal("Plain click should replace the selection")
	}

	e.Click(cell(6, 6), Modifiers{Ctrl: true})
	e.Click(cell(7, 7), Modifiers{Meta: true})
	if e.Count() != 3 {
		t.Fatalf("Expected 3 toggled cells, got %d", e.Count())
	}

	e.Click(cell(6, 6), Modifiers{Ctrl: true})
	if e.IsSelected(cell(6, 6)) || e.Count() != 2 {
		t.Error("Ctrl+click on a selected cell should deselect it")
	}

	// Anchor is now (6,6) from the last toggle click
	e.Click(cell(8, 9), Modifiers{Shift: true})
	if e.Count() != 12 {
		t.Errorf("Shift+click should select the 3x4 rectangle, got %d cells", e.Count())
	}
	if a, _ := e.Anchor(); a != cell(6, 6) {
		t.Errorf("Shift+click must keep the anchor, got %v", a)
	}

	e.Click(cell(5, 9), Modifiers{Shift: true})
	if e.Count() != 8 || e.IsSelected(cell(8, 9)) {
		t.Errorf("Second Shift+click should rebuild from the same anchor, got %d cells", e.Count())
	}
}

func TestShiftClickWithoutAnchor(t *testing.T) {
	e := NewEngine()
	e.Click(cell(2, 2), Modifiers{Shift: true})
	if e.Count() != 1 || !e.IsSelected(cell(2, 2)) {
		t.Error("Shift+click without anchor behaves as a plain click")
	}
}

func TestSelectAll(t *testing.T) {
	cfg := coords.Config{ImageWidth: 100, ImageHeight: 50, UnrealWidth: 1, UnrealHeight: 1, BaseCellSize: 10, ZoneSize: 1}
	e := NewEngine()
	if err := e.SelectAll(cfg); err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}
	if e.Count() != 50 {
		t.Errorf("Expected 50 cells, got %d", e.Count())
	}

	cfg.BaseCellSize = 0
	if err := e.SelectAll(cfg); err == nil {
		t.Error("Expected configuration error")
	}
	if e.Count() != 50 {
		t.Error("Failed SelectAll must not change the selection")
	}
}

func TestCancel(t *testing.T) {
	e := NewEngine()
	e.Click(cell(1, 1), Modifiers{})
	e.StartSelection(cell(3, 3), false)
	e.UpdateSelection(cell(9, 9))

	e.Cancel()
	if e.Phase() != Idle {
		t.Fatal("Cancel should return to Idle")
	}
	if e.Count() != 1 || !e.IsSelected(cell(1, 1)) {
		t.Error("Cancel during a drag must keep the committed selection")
	}

	e.Cancel()
	if e.Count() != 0 {
		t.Error("Cancel while idle should clear the selection")
	}
	if e.EndSelection() || e.UpdateSelection(cell(0, 0)) {
		t.Error("Update/End while idle must be no-ops")
	}
}

func TestClearSelection(t *testing.T) {
	e := NewEngine()
	e.StartSelection(cell(0, 0), false)
	e.ClearSelection()
	if e.Phase() != Idle || e.Count() != 0 {
		t.Error("ClearSelection should reset to an empty idle engine")
	}
	if _, ok := e.Bounds(); ok {
		t.Error("Empty selection has no bounds")
	}
}

func TestSnapshotJSON(t *testing.T) {
	e := NewEngine()
	e.StartSelection(cell(1, 1), false)
	e.UpdateSelection(cell(2, 1))

	data, err := json.Marshal(e.Snapshot(true))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"phase":"dragging"`, `"count":2`, `"cellX":2`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}
}

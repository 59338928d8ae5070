package viewport

import (
	"math"
	"testing"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

func createTestConfig() coords.Config {
	return coords.Config{
		ImageWidth:   2000,
		ImageHeight:  1000,
		UnrealWidth:  2000,
		UnrealHeight: 1000,
		BaseCellSize: 10,
		ZoneSize:     10,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestZoomReversible(t *testing.T) {
	c := NewController(createTestConfig(), Size{800, 600})

	for _, start := range []float64{0.5, 1, 2.5, 7} {
		c.SetState(State{Zoom: start})
		c.ZoomIn()
		c.ZoomOut()
		if !almostEqual(c.State().Zoom, start) {
			t.Errorf("ZoomIn/ZoomOut from %g ended at %g", start, c.State().Zoom)
		}
	}
}

func TestZoomClamps(t *testing.T) {
	c := NewController(createTestConfig(), Size{800, 600})

	for i := 0; i < 100; i++ {
		c.ZoomIn()
	}
	if c.State().Zoom != MaxZoom {
		t.Errorf("Expected zoom clamped to %g, got %g", MaxZoom, c.State().Zoom)
	}

	for i := 0; i < 200; i++ {
		c.ZoomOut()
	}
	if c.State().Zoom != MinZoom {
		t.Errorf("Expected zoom clamped to %g, got %g", MinZoom, c.State().Zoom)
	}
}

func TestZoomAtPointKeepsMapPointUnderPointer(t *testing.T) {
	c := NewController(createTestConfig(), Size{800, 600})
	c.SetState(State{Zoom: 1.3, Pan: Point{X: -120, Y: 45}})

	pointer := Point{X: 333, Y: 222}
	before := c.ScreenToMap(pointer)

	if !c.ZoomAtPoint(-1, pointer) {
		t.Fatal("Expected zoom to apply")
	}
	after := c.ScreenToMap(pointer)
	if !almostEqual(before.X, after.X) || !almostEqual(before.Y, after.Y) {
		t.Errorf("Map point moved from %+v to %+v", before, after)
	}
	if !almostEqual(c.State().Zoom, 1.3*ZoomFactor) {
		t.Errorf("Expected zoom %g, got %g", 1.3*ZoomFactor, c.State().Zoom)
	}

	c.ZoomAtPoint(1, pointer)
	after = c.ScreenToMap(pointer)
	if !almostEqual(before.X, after.X) || !almostEqual(before.Y, after.Y) {
		t.Errorf("Map point moved on zoom out from %+v to %+v", before, after)
	}

	if c.ZoomAtPoint(math.NaN(), pointer) {
		t.Error("NaN wheel delta must be ignored")
	}
}

func TestFitToViewport(t *testing.T) {
	cfg := createTestConfig()

	t.Run("image larger than viewport", func(t *testing.T) {
		c := NewController(cfg, Size{})
		c.FitToViewport(Size{800, 600}, cfg)
		s := c.State()
		// min(800/2000, 600/1000, 1) = 0.4
		if !almostEqual(s.Zoom, 0.4) {
			t.Errorf("Expected zoom 0.4, got %g", s.Zoom)
		}
		if !almostEqual(s.Pan.X, 0) || !almostEqual(s.Pan.Y, 100) {
			t.Errorf("Expected centred pan (0,100), got %+v", s.Pan)
		}
	})

	t.Run("image smaller than viewport never zooms past 1", func(t *testing.T) {
		c := NewController(cfg, Size{})
		c.FitToViewport(Size{4000, 3000}, cfg)
		s := c.State()
		if s.Zoom != 1 {
			t.Errorf("Expected zoom 1, got %g", s.Zoom)
		}
		if !almostEqual(s.Pan.X, 1000) || !almostEqual(s.Pan.Y, 1000) {
			t.Errorf("Expected centred pan (1000,1000), got %+v", s.Pan)
		}
	})
}

func TestResetAndPan(t *testing.T) {
	c := NewController(createTestConfig(), Size{800, 600})
	c.ZoomIn()
	c.Pan(10, -5)
	c.Pan(2, 3)
	if s := c.State(); s.Pan != (Point{12, -2}) {
		t.Errorf("Expected accumulated pan (12,-2), got %+v", s.Pan)
	}
	c.Pan(math.NaN(), 1)
	if s := c.State(); s.Pan != (Point{12, -2}) {
		t.Errorf("NaN pan must be ignored, got %+v", s.Pan)
	}

	c.ResetView()
	if s := c.State(); s.Zoom != 1 || s.Pan != (Point{}) {
		t.Errorf("Expected reset view, got %+v", s)
	}
}

func TestCellSelectionModeLocksZoom(t *testing.T) {
	cfg := createTestConfig()
	c := NewController(cfg, Size{800, 600})
	c.SetState(State{Zoom: 3.2, Pan: Point{50, 50}})

	c.EnterCellMode()
	s := c.State()
	if s.Zoom != 1 {
		t.Fatalf("Expected zoom forced to exactly 1, got %g", s.Zoom)
	}
	if !s.Locked {
		t.Fatal("Expected viewport locked")
	}
	if s.Pan != (Point{X: -600, Y: -200}) {
		t.Errorf("Expected centred pan (-600,-200), got %+v", s.Pan)
	}

	if c.ZoomIn() || c.ZoomOut() || c.ZoomAtPoint(-1, Point{1, 1}) || c.FitToViewport(Size{800, 600}, cfg) {
		t.Error("Zoom operations must be no-ops in cell mode")
	}
	if c.State().Zoom != 1 {
		t.Errorf("Zoom changed while locked: %g", c.State().Zoom)
	}

	// Panning still works
	c.Pan(5, 5)
	if c.State().Pan != (Point{X: -595, Y: -195}) {
		t.Errorf("Expected pan to apply in cell mode, got %+v", c.State().Pan)
	}

	// Screen pixel maps 1:1 onto an image pixel
	cell, err := c.ScreenToCell(Point{X: -595 + 25, Y: -195 + 37})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cell != (coords.Cell{X: 2, Y: 3}) {
		t.Errorf("Expected cell (2,3), got %v", cell)
	}

	c.ExitCellMode()
	if !c.ZoomIn() {
		t.Error("Zoom should work after leaving cell mode")
	}
}

func TestEnterCellSelectionModeIsPure(t *testing.T) {
	cfg := createTestConfig()
	in := State{Zoom: 4, Pan: Point{1, 2}}
	out := EnterCellSelectionMode(in, Size{2000, 1000}, cfg)
	if in.Zoom != 4 || in.Locked {
		t.Error("Input state must not be modified")
	}
	if out.Zoom != 1 || !out.Locked || out.Pan != (Point{}) {
		t.Errorf("Unexpected output state %+v", out)
	}
	if ExitCellSelectionMode(out).Locked {
		t.Error("Expected unlocked state")
	}
}

func TestScreenToCellClamps(t *testing.T) {
	c := NewController(createTestConfig(), Size{800, 600})
	cell, err := c.ScreenToCell(Point{X: math.NaN(), Y: 1e12})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cell != (coords.Cell{X: 0, Y: 99}) {
		t.Errorf("Expected clamped cell (0,99), got %v", cell)
	}
}

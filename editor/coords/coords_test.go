package coords

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"

	"go.uber.org/multierr"
)

func createTestConfig() Config {
	return Config{
		ImageWidth:   1000,
		ImageHeight:  800,
		UnrealWidth:  100000,
		UnrealHeight: 40000,
		BaseCellSize: 10,
		ZoneSize:     8,
	}
}

func TestConfigCounts(t *testing.T) {
	cfg := createTestConfig()
	if cfg.CellsX() != 100 {
		t.Errorf("Expected 100 cells on X, got %d", cfg.CellsX())
	}
	if cfg.CellsY() != 80 {
		t.Errorf("Expected 80 cells on Y, got %d", cfg.CellsY())
	}
	if cfg.TotalCells() != 8000 {
		t.Errorf("Expected 8000 total cells, got %d", cfg.TotalCells())
	}
	if cfg.ZonesX() != 13 {
		t.Errorf("Expected 13 zone columns (partial zone counted), got %d", cfg.ZonesX())
	}
	if cfg.ZonesY() != 10 {
		t.Errorf("Expected 10 zone rows, got %d", cfg.ZonesY())
	}

	// Non-multiple dimensions floor
	cfg.ImageWidth = 1009
	if cfg.CellsX() != 100 {
		t.Errorf("Expected floor(1009/10)=100, got %d", cfg.CellsX())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero cell size", func(c *Config) { c.BaseCellSize = 0 }, "baseCellSize"},
		{"negative cell size", func(c *Config) { c.BaseCellSize = -4 }, "baseCellSize"},
		{"zero image width", func(c *Config) { c.ImageWidth = 0 }, "imageWidth"},
		{"zero image height", func(c *Config) { c.ImageHeight = 0 }, "imageHeight"},
		{"zero unreal width", func(c *Config) { c.UnrealWidth = 0 }, "unrealWidth"},
		{"NaN unreal height", func(c *Config) { c.UnrealHeight = math.NaN() }, "unrealHeight"},
		{"zero zone size", func(c *Config) { c.ZoneSize = 0 }, "zoneSize"},
		{"image smaller than a cell", func(c *Config) { c.ImageWidth = 5 }, "imageWidth"},
		{"too many cells", func(c *Config) { c.ImageWidth, c.ImageHeight, c.BaseCellSize = 1000000, 1000000, 1 }, "baseCellSize"},
		{"one huge axis", func(c *Config) { c.ImageWidth, c.BaseCellSize = math.MaxInt32, 1 }, "baseCellSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected configuration error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigurationError, got %T", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("Expected errors.Is(err, ErrConfiguration)")
			}
		})
	}

	t.Run("valid config", func(t *testing.T) {
		if err := createTestConfig().Validate(); err != nil {
			t.Errorf("Expected valid config, got %v", err)
		}
	})

	t.Run("largest allowed grid", func(t *testing.T) {
		cfg := Config{ImageWidth: 4096, ImageHeight: 4096, UnrealWidth: 1, UnrealHeight: 1, BaseCellSize: 1, ZoneSize: 8}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected %d cells to be allowed, got %v", MaxTotalCells, err)
		}
	})

	t.Run("all violations collected", func(t *testing.T) {
		cfg := Config{}
		errs := multierr.Errors(cfg.ValidateAll())
		if len(errs) != 6 {
			t.Errorf("Expected 6 violations for empty config, got %d", len(errs))
		}
	})
}

func TestPixelToCell(t *testing.T) {
	cfg := createTestConfig()

	tests := []struct {
		name     string
		pixel    Pixel
		expected Cell
	}{
		{"origin", Pixel{0, 0}, Cell{0, 0}},
		{"inside first cell", Pixel{9.99, 9.99}, Cell{0, 0}},
		{"cell boundary", Pixel{10, 20}, Cell{1, 2}},
		{"middle", Pixel{505, 399}, Cell{50, 39}},
		{"last cell", Pixel{999, 799}, Cell{99, 79}},
		{"past right edge clamps", Pixel{5000, 10}, Cell{99, 1}},
		{"past bottom edge clamps", Pixel{10, 800}, Cell{1, 79}},
		{"negative clamps", Pixel{-50, -1}, Cell{0, 0}},
		{"NaN clamps", Pixel{math.NaN(), math.NaN()}, Cell{0, 0}},
		{"infinity clamps", Pixel{math.Inf(1), math.Inf(-1)}, Cell{99, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := PixelToCell(tt.pixel, cfg)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cell != tt.expected {
				t.Errorf("PixelToCell(%v) = %v, expected %v", tt.pixel, cell, tt.expected)
			}
		})
	}
}

func TestCellRoundTrip(t *testing.T) {
	configs := []Config{
		createTestConfig(),
		{ImageWidth: 1000, ImageHeight: 1000, UnrealWidth: 1, UnrealHeight: 1, BaseCellSize: 10, ZoneSize: 1},
		{ImageWidth: 4096, ImageHeight: 2048, UnrealWidth: 8192, UnrealHeight: 4096, BaseCellSize: 16, ZoneSize: 8},
		{ImageWidth: 7, ImageHeight: 13, UnrealWidth: 70, UnrealHeight: 13, BaseCellSize: 3, ZoneSize: 2},
	}

	for _, cfg := range configs {
		for y := 0; y < cfg.CellsY(); y += 1 + cfg.CellsY()/17 {
			for x := 0; x < cfg.CellsX(); x += 1 + cfg.CellsX()/19 {
				cell := Cell{X: x, Y: y}
				p, err := CellToPixel(cell, cfg)
				if err != nil {
					t.Fatalf("CellToPixel failed: %v", err)
				}
				back, err := PixelToCell(p, cfg)
				if err != nil {
					t.Fatalf("PixelToCell failed: %v", err)
				}
				if back != cell {
					t.Fatalf("Round trip of %v with cell size %d gave %v", cell, cfg.BaseCellSize, back)
				}
			}
		}
	}
}

func TestPixelToWorld(t *testing.T) {
	cfg := createTestConfig()

	w, err := PixelToWorld(Pixel{X: 500, Y: 400}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// X scale 100, Y scale 50: axes are independent
	if w.X != 50000 || w.Y != 20000 {
		t.Errorf("Expected (50000,20000), got (%g,%g)", w.X, w.Y)
	}

	p, err := WorldToPixel(w, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.X != 500 || p.Y != 400 {
		t.Errorf("Expected inverse (500,400), got (%g,%g)", p.X, p.Y)
	}

	w, err = PixelToWorld(Pixel{X: math.NaN(), Y: 1}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.IsNaN(w.X) {
		t.Error("NaN must not propagate into world coordinates")
	}

	clamped := []struct {
		name  string
		pixel Pixel
		world World
	}{
		{"negative", Pixel{-50, -1}, World{0, 0}},
		{"past the image", Pixel{5000, 900}, World{100000, 40000}},
		{"infinity", Pixel{math.Inf(1), math.Inf(-1)}, World{100000, 0}},
	}
	for _, tt := range clamped {
		t.Run(tt.name, func(t *testing.T) {
			w, err := PixelToWorld(tt.pixel, cfg)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if w != tt.world {
				t.Errorf("PixelToWorld(%v) = %v, expected %v", tt.pixel, w, tt.world)
			}
		})
	}

	p, err = WorldToPixel(World{X: -10, Y: 1e9}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.X != 0 || p.Y != 800 {
		t.Errorf("Expected world position clamped to (0,800), got (%g,%g)", p.X, p.Y)
	}
}

func TestCellOf(t *testing.T) {
	// 1005 px at 10 px cells leaves a 5 px strip past the last full cell
	cfg := Config{ImageWidth: 1005, ImageHeight: 1005, UnrealWidth: 1005, UnrealHeight: 1005, BaseCellSize: 10, ZoneSize: 10}

	tests := []struct {
		name  string
		pixel Pixel
		cell  Cell
		ok    bool
	}{
		{"origin", Pixel{0, 0}, Cell{0, 0}, true},
		{"last full cell", Pixel{999.5, 995}, Cell{99, 99}, true},
		{"leftover strip", Pixel{1003, 1003}, Cell{}, false},
		{"strip on one axis", Pixel{500, 1001}, Cell{}, false},
		{"negative", Pixel{-1, 5}, Cell{}, false},
		{"NaN", Pixel{math.NaN(), 5}, Cell{}, false},
		{"infinity", Pixel{math.Inf(1), 5}, Cell{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, ok := CellOf(tt.pixel, cfg)
			if ok != tt.ok || cell != tt.cell {
				t.Errorf("CellOf(%v) = %v, %v, expected %v, %v", tt.pixel, cell, ok, tt.cell, tt.ok)
			}
		})
	}

	if _, ok := CellOf(Pixel{1, 1}, Config{}); ok {
		t.Error("Expected no cell for an invalid config")
	}
}

func TestCellToWorld(t *testing.T) {
	cfg := createTestConfig()
	w, err := CellToWorld(Cell{X: 0, Y: 0}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// centre of cell (0,0) is pixel (5,5)
	if w.X != 500 || w.Y != 250 {
		t.Errorf("Expected (500,250), got (%g,%g)", w.X, w.Y)
	}
}

func TestZoneOf(t *testing.T) {
	cfg := createTestConfig()
	z, err := ZoneOf(Cell{X: 17, Y: 8}, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if z != (Zone{X: 2, Y: 1}) {
		t.Errorf("Expected zone (2,1), got %+v", z)
	}
}

func TestConversionsRejectInvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.BaseCellSize = 0

	checks := map[string]func() error{
		"PixelToCell": func() error { _, err := PixelToCell(Pixel{1, 1}, cfg); return err },
		"CellToPixel": func() error { _, err := CellToPixel(Cell{1, 1}, cfg); return err },
		"CellCenter":  func() error { _, err := CellCenter(Cell{1, 1}, cfg); return err },
		"CellRect":    func() error { _, err := CellRect(Cell{1, 1}, cfg); return err },
		"PixelToWorld": func() error {
			_, err := PixelToWorld(Pixel{1, 1}, cfg)
			return err
		},
		"WorldToPixel": func() error {
			_, err := WorldToPixel(World{1, 1}, cfg)
			return err
		},
		"CellToWorld": func() error { _, err := CellToWorld(Cell{1, 1}, cfg); return err },
		"ZoneOf":      func() error { _, err := ZoneOf(Cell{1, 1}, cfg); return err },
	}

	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("%s panicked: %v", name, r)
				}
			}()
			err := fn()
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("%s: expected configuration error, got %v", name, err)
			}
		})
	}
}

func TestConfigFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}

	cfg, info, err := ConfigFromImage(bytes.NewReader(buf.Bytes()), 16, 4, 3200, 2400)
	if err != nil {
		t.Fatalf("ConfigFromImage failed: %v", err)
	}
	if info.Format != "png" {
		t.Errorf("Expected png format, got %s", info.Format)
	}
	if cfg.ImageWidth != 320 || cfg.ImageHeight != 240 {
		t.Errorf("Expected 320x240, got %dx%d", cfg.ImageWidth, cfg.ImageHeight)
	}
	if cfg.CellsX() != 20 || cfg.CellsY() != 15 {
		t.Errorf("Expected 20x15 cells, got %dx%d", cfg.CellsX(), cfg.CellsY())
	}

	_, _, err = ConfigFromImage(bytes.NewReader(buf.Bytes()), 0, 4, 3200, 2400)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected configuration error for zero cell size, got %v", err)
	}

	_, err = ReadImageInfo(bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Error("Expected error for garbage input")
	}
}

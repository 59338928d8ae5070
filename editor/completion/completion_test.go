package completion

import (
	"errors"
	"math"
	"testing"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

func createTestConfig() coords.Config {
	return coords.Config{
		ImageWidth:   1000,
		ImageHeight:  1000,
		UnrealWidth:  1000,
		UnrealHeight: 1000,
		BaseCellSize: 10,
		ZoneSize:     10,
	}
}

func block(id string, x0, y0, x1, y1 int) region.Region {
	r := region.Region{ID: id, Name: id}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			r.Cells = append(r.Cells, coords.Cell{X: x, Y: y})
		}
	}
	return r
}

func TestCalculateOnePercent(t *testing.T) {
	cfg := createTestConfig()
	res, err := Calculate(cfg, []region.Region{block("a", 0, 0, 9, 9)}, "", nil)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if res.TotalCells != 10000 {
		t.Errorf("Expected 10000 total cells, got %d", res.TotalCells)
	}
	if res.CellsWithContent != 100 {
		t.Errorf("Expected 100 cells with content, got %d", res.CellsWithContent)
	}
	if res.Percentage != 1.0 {
		t.Errorf("Expected 1.0%%, got %g", res.Percentage)
	}
}

func TestCalculateUnion(t *testing.T) {
	cfg := createTestConfig()
	regions := []region.Region{
		block("a", 0, 0, 9, 9),
		block("b", 5, 5, 14, 14), // overlaps a by 25 cells
	}
	placements := []coords.Pixel{
		{X: 5, Y: 5},     // inside a
		{X: 505, Y: 505}, // cell (50,50), new
		{X: 507, Y: 501}, // same cell again
		{X: -1, Y: 10},   // outside the image
		{X: 1000, Y: 10}, // outside the image
	}

	res, err := Calculate(cfg, regions, "", placements)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if res.RegionCells != 175 {
		t.Errorf("Expected 175 region cells, got %d", res.RegionCells)
	}
	if res.PlacementCells != 2 {
		t.Errorf("Expected 2 placement cells, got %d", res.PlacementCells)
	}
	if res.CellsWithContent != 176 {
		t.Errorf("Expected 176 cells with content, got %d", res.CellsWithContent)
	}
}

func TestPlacementsPastLastFullCell(t *testing.T) {
	cfg := createTestConfig()
	cfg.ImageWidth, cfg.ImageHeight = 1005, 1005

	tests := []struct {
		name       string
		placements []coords.Pixel
		want       int
	}{
		{"leftover strip", []coords.Pixel{{X: 1003, Y: 1003}}, 0},
		{"strip on one axis", []coords.Pixel{{X: 1001, Y: 50}, {X: 50, Y: 1004}}, 0},
		{"last full cell", []coords.Pixel{{X: 999, Y: 999}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(cfg, nil, "", tt.placements)
			if err != nil {
				t.Fatalf("Calculate failed: %v", err)
			}
			if res.TotalCells != 10000 {
				t.Errorf("Expected 10000 total cells, got %d", res.TotalCells)
			}
			if res.CellsWithContent != tt.want {
				t.Errorf("Expected %d cells with content, got %d", tt.want, res.CellsWithContent)
			}
		})
	}
}

func TestBaseRegionExcluded(t *testing.T) {
	cfg := createTestConfig()
	base := block("base", 0, 0, 99, 99)

	res, err := Calculate(cfg, []region.Region{base}, "base", []coords.Pixel{{X: 15, Y: 15}})
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if res.RealRegions != 0 {
		t.Errorf("Expected 0 real regions, got %d", res.RealRegions)
	}
	if res.CellsWithContent != 1 {
		t.Errorf("Expected only the placement cell, got %d", res.CellsWithContent)
	}
}

func TestMonotonicity(t *testing.T) {
	cfg := createTestConfig()
	var regions []region.Region
	prev := 0
	for i := 0; i < 10; i++ {
		regions = append(regions, block(string(rune('a'+i)), i*3, i*2, i*3+8, i*2+8))
		res, err := Calculate(cfg, regions, "", nil)
		if err != nil {
			t.Fatalf("Calculate failed: %v", err)
		}
		if res.CellsWithContent < prev {
			t.Fatalf("Adding a region decreased content from %d to %d", prev, res.CellsWithContent)
		}
		prev = res.CellsWithContent
	}
	for len(regions) > 0 {
		regions = regions[:len(regions)-1]
		res, _ := Calculate(cfg, regions, "", nil)
		if res.CellsWithContent > prev {
			t.Fatalf("Removing a region increased content from %d to %d", prev, res.CellsWithContent)
		}
		prev = res.CellsWithContent
	}
	if prev != 0 {
		t.Errorf("Expected no content after removing every region, got %d", prev)
	}
}

func TestPercentageClamp(t *testing.T) {
	if p := Percentage(150, 100); p != 100 {
		t.Errorf("Expected clamp to 100, got %g", p)
	}
	if p := Percentage(-5, 100); p != 0 {
		t.Errorf("Expected clamp to 0, got %g", p)
	}
	if p := Percentage(5, 0); p != 0 {
		t.Errorf("Expected 0 for empty map, got %g", p)
	}
}

func TestBenchmarkRatio(t *testing.T) {
	ratio, ok := BenchmarkRatio(300, 200)
	if !ok || ratio != 150 {
		t.Errorf("Expected uncapped 150, got %g", ratio)
	}
	if _, ok := BenchmarkRatio(1, 0); ok {
		t.Error("Zero benchmark is not applicable")
	}

	res := Result{CellsWithContent: 50}.WithBenchmark(25)
	if res.BenchmarkRatio != 200 || res.BenchmarkCells != 25 {
		t.Errorf("Unexpected benchmark result %+v", res)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.BaseCellSize = 0
	if _, err := Calculate(cfg, nil, "", nil); !errors.Is(err, coords.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
	if _, err := ZoneCoverage(cfg, nil, "", nil); !errors.Is(err, coords.ErrConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestZoneCoverage(t *testing.T) {
	// 25x20 cells with zone size 10: 3x2 zones, right column 5 cells wide
	cfg := coords.Config{ImageWidth: 250, ImageHeight: 200, UnrealWidth: 1, UnrealHeight: 1, BaseCellSize: 10, ZoneSize: 10}

	report, err := ZoneCoverage(cfg, []region.Region{block("a", 0, 0, 9, 9), block("b", 20, 10, 24, 19)}, "", nil)
	if err != nil {
		t.Fatalf("ZoneCoverage failed: %v", err)
	}
	if report.ZonesX != 3 || report.ZonesY != 2 || len(report.Zones) != 6 {
		t.Fatalf("Unexpected zone grid %dx%d (%d)", report.ZonesX, report.ZonesY, len(report.Zones))
	}
	if z := report.Zones[0]; z.Percentage != 100 || z.Cells != 100 {
		t.Errorf("Expected zone (0,0) fully covered, got %+v", z)
	}
	if z := report.Zones[5]; z.Cells != 50 || z.Percentage != 100 {
		t.Errorf("Expected partial zone (2,1) fully covered, got %+v", z)
	}
	if report.Max != 100 || report.Min != 0 {
		t.Errorf("Unexpected min/max %g/%g", report.Min, report.Max)
	}
	// Two of six zones at 100%
	if math.Abs(report.Mean-100.0/3) > 1e-9 {
		t.Errorf("Expected mean 33.3, got %g", report.Mean)
	}
	if report.StdDev <= 0 {
		t.Errorf("Expected positive spread, got %g", report.StdDev)
	}
}

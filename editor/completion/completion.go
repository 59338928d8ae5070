// Package completion measures how much of a map has authored content.
package completion

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

// Result is the coverage of one map.
type Result struct {
	TotalCells       int     `json:"total_cells"`
	CellsWithContent int     `json:"cells_with_content"`
	RegionCells      int     `json:"region_cells"`
	PlacementCells   int     `json:"placement_cells"`
	RealRegions      int     `json:"real_regions"`
	Percentage       float64 `json:"completion_percentage"`
	BenchmarkCells   int     `json:"benchmark_cells,omitempty"`
	BenchmarkRatio   float64 `json:"benchmark_ratio,omitempty"`
}

// ContentCells returns the union of every cell of a non-base region and every
// cell holding at least one placement. The region whose id equals
// baseRegionID is skipped. Cells outside the map are ignored, and so are
// placements that fall in no cell: outside the image, or in the strip past
// the last full cell.
func ContentCells(cfg coords.Config, regions []region.Region, baseRegionID string, placements []coords.Pixel) (content, regionCells, placementCells region.CellSet, realRegions int, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, 0, err
	}

	regionCells = make(region.CellSet)
	for _, r := range regions {
		if baseRegionID != "" && r.ID == baseRegionID {
			continue
		}
		realRegions++
		for _, c := range r.Cells {
			if cfg.Contains(c) {
				regionCells[c] = struct{}{}
			}
		}
	}

	placementCells = make(region.CellSet)
	for _, p := range placements {
		if c, ok := coords.CellOf(p, cfg); ok {
			placementCells[c] = struct{}{}
		}
	}

	content = make(region.CellSet, len(regionCells)+len(placementCells))
	for c := range regionCells {
		content[c] = struct{}{}
	}
	for c := range placementCells {
		content[c] = struct{}{}
	}
	return content, regionCells, placementCells, realRegions, nil
}

// Calculate computes the completion percentage of a map.
func Calculate(cfg coords.Config, regions []region.Region, baseRegionID string, placements []coords.Pixel) (Result, error) {
	content, regionCells, placementCells, realRegions, err := ContentCells(cfg, regions, baseRegionID, placements)
	if err != nil {
		return Result{}, err
	}

	total := cfg.TotalCells()
	return Result{
		TotalCells:       total,
		CellsWithContent: len(content),
		RegionCells:      len(regionCells),
		PlacementCells:   len(placementCells),
		RealRegions:      realRegions,
		Percentage:       Percentage(len(content), total),
	}, nil
}

// WithBenchmark attaches the advisory benchmark ratio to r.
func (r Result) WithBenchmark(benchmarkCells int) Result {
	if ratio, ok := BenchmarkRatio(r.CellsWithContent, benchmarkCells); ok {
		r.BenchmarkCells = benchmarkCells
		r.BenchmarkRatio = ratio
	}
	return r
}

// Percentage is 100*content/total clamped to [0, 100].
func Percentage(content, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(100, 100*float64(content)/float64(total)))
}

// BenchmarkRatio compares content against an external reference cell count.
// The value is not capped and may exceed 100.
func BenchmarkRatio(content, benchmarkCells int) (float64, bool) {
	if benchmarkCells <= 0 {
		return 0, false
	}
	return 100 * float64(content) / float64(benchmarkCells), true
}

// ZoneStat is the coverage of one zone.
type ZoneStat struct {
	Zone       coords.Zone `json:"zone"`
	Cells      int         `json:"cells"`
	Covered    int         `json:"covered"`
	Percentage float64     `json:"percentage"`
}

// ZoneReport summarises coverage per zone.
type ZoneReport struct {
	ZonesX int        `json:"zones_x"`
	ZonesY int        `json:"zones_y"`
	Zones  []ZoneStat `json:"zones"`
	Mean   float64    `json:"mean"`
	StdDev float64    `json:"std_dev"`
	Min    float64    `json:"min"`
	Max    float64    `json:"max"`
}

// ZoneCoverage computes the coverage percentage of every zone, row-major, and
// the distribution of those percentages. Partial zones on the right and
// bottom edges count only their real cells.
func ZoneCoverage(cfg coords.Config, regions []region.Region, baseRegionID string, placements []coords.Pixel) (ZoneReport, error) {
	content, _, _, _, err := ContentCells(cfg, regions, baseRegionID, placements)
	if err != nil {
		return ZoneReport{}, err
	}

	zx, zy := cfg.ZonesX(), cfg.ZonesY()
	covered := make([]int, zx*zy)
	for c := range content {
		covered[(c.Y/cfg.ZoneSize)*zx+c.X/cfg.ZoneSize]++
	}

	report := ZoneReport{ZonesX: zx, ZonesY: zy, Zones: make([]ZoneStat, 0, zx*zy)}
	percentages := make([]float64, 0, zx*zy)
	for y := 0; y < zy; y++ {
		for x := 0; x < zx; x++ {
			w := min(cfg.ZoneSize, cfg.CellsX()-x*cfg.ZoneSize)
			h := min(cfg.ZoneSize, cfg.CellsY()-y*cfg.ZoneSize)
			n := covered[y*zx+x]
			pct := Percentage(n, w*h)
			report.Zones = append(report.Zones, ZoneStat{
				Zone:       coords.Zone{X: x, Y: y},
				Cells:      w * h,
				Covered:    n,
				Percentage: pct,
			})
			percentages = append(percentages, pct)
		}
	}

	if len(percentages) > 0 {
		report.Mean, report.StdDev = stat.MeanStdDev(percentages, nil)
		if len(percentages) == 1 || math.IsNaN(report.StdDev) {
			report.StdDev = 0
		}
		report.Min = floats.Min(percentages)
		report.Max = floats.Max(percentages)
	}
	return report, nil
}

package service

import (
	"context"
	"io"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/completion"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/grid"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preview"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// Completion measures the share of cells with authored content. A positive
// benchmarkCells adds the advisory benchmark ratio.
func (s *editorServiceImpl) Completion(ctx context.Context, mapID string, benchmarkCells int) (*completion.Result, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	result, err := completion.Calculate(rec.Config, s.regions.List(mapID), rec.BaseRegionID, s.placementPixels(mapID))
	if err != nil {
		return nil, err
	}
	if benchmarkCells > 0 {
		result = result.WithBenchmark(benchmarkCells)
	}
	return &result, nil
}

// ZoneCoverage reports coverage per zone
func (s *editorServiceImpl) ZoneCoverage(ctx context.Context, mapID string) (*completion.ZoneReport, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	report, err := completion.ZoneCoverage(rec.Config, s.regions.List(mapID), rec.BaseRegionID, s.placementPixels(mapID))
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Convert expresses a pixel in cell, world and zone coordinates
func (s *editorServiceImpl) Convert(ctx context.Context, mapID string, p coords.Pixel) (*Conversion, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	cfg := rec.Config

	cell, err := coords.PixelToCell(p, cfg)
	if err != nil {
		return nil, err
	}
	center, err := coords.CellCenter(cell, cfg)
	if err != nil {
		return nil, err
	}
	world, err := coords.PixelToWorld(p, cfg)
	if err != nil {
		return nil, err
	}
	zone, err := coords.ZoneOf(cell, cfg)
	if err != nil {
		return nil, err
	}
	return &Conversion{Pixel: p, Cell: cell, CellCenter: center, World: world, Zone: zone}, nil
}

// DescribeCell reports the regions, placements and effective override of a cell
func (s *editorServiceImpl) DescribeCell(ctx context.Context, mapID string, cell coords.Cell) (*CellInfo, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	cfg := rec.Config
	cell = cfg.ClampCell(cell)

	rect, err := coords.CellRect(cell, cfg)
	if err != nil {
		return nil, err
	}
	world, err := coords.CellToWorld(cell, cfg)
	if err != nil {
		return nil, err
	}
	zone, err := coords.ZoneOf(cell, cfg)
	if err != nil {
		return nil, err
	}

	info := &CellInfo{Cell: cell, Rect: rect, World: world, Zone: zone, Regions: []RegionRef{}}
	for _, r := range s.regions.RegionsAt(mapID, cell) {
		boundary, err := s.regions.IsCellOnBoundary(r.ID, cell)
		if err != nil {
			return nil, err
		}
		info.Regions = append(info.Regions, RegionRef{ID: r.ID, Name: r.Name, Boundary: boundary})
	}
	for _, p := range s.placementPixels(mapID) {
		if c, ok := coords.CellOf(p, cfg); ok && c == cell {
			info.Placements++
		}
	}
	info.HasContent = len(info.Regions) > 0 || info.Placements > 0

	if o, regionID, ok := s.regions.OverrideAt(mapID, cell); ok {
		envID, meta := o.Persisted()
		info.OverrideRegionID = regionID
		info.EnvironmentID = envID
		if envID == "" {
			info.Metadata = &meta
		}
	}
	return info, nil
}

// Grid returns the grid lines for the part of the map visible in a session
func (s *editorServiceImpl) Grid(ctx context.Context, sessionID string) (*GridView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Controller.State()
	cfg := sess.Controller.Config()
	rect := sess.Controller.VisibleRect()

	view := &GridView{
		SessionID: sess.ID,
		Zoom:      state.Viewport.Zoom,
		CellSize:  cfg.BaseCellSize,
		Rect:      rect,
		Lines:     []grid.Line{},
	}
	if state.ShowGrid {
		view.Lines = grid.LinesInRect(rect, float64(cfg.BaseCellSize), state.Viewport.Zoom)
	}
	return view, nil
}

// Overlay returns region fill and stroke geometry, base region excluded
func (s *editorServiceImpl) Overlay(ctx context.Context, mapID string) ([]grid.RegionLayer, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	return grid.RegionOverlay(s.regions.Overlay(mapID), rec.Config)
}

// Preview writes a PNG of the region overlay
func (s *editorServiceImpl) Preview(ctx context.Context, mapID string, width int, w io.Writer) error {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return err
	}
	return preview.Render(w, rec.Config, s.regions.Overlay(mapID), width)
}

func (s *editorServiceImpl) placementPixels(mapID string) []coords.Pixel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Pixels(s.placements[mapID])
}

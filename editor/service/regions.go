package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// ListRegions returns the regions of a map in creation order
func (s *editorServiceImpl) ListRegions(ctx context.Context, mapID string, includeBase bool) ([]region.Region, error) {
	if _, err := s.mapRecord(mapID); err != nil {
		return nil, err
	}
	if includeBase {
		return s.regions.List(mapID), nil
	}
	return s.regions.Overlay(mapID), nil
}

// GetRegion returns one region
func (s *editorServiceImpl) GetRegion(ctx context.Context, regionID string) (region.Region, error) {
	return s.regions.Get(regionID)
}

// CreateRegion validates, persists and commits a new region
func (s *editorServiceImpl) CreateRegion(ctx context.Context, req CreateRegionRequest) (region.Region, error) {
	if _, err := s.mapRecord(req.MapID); err != nil {
		return region.Region{}, err
	}
	override, err := region.ParseOverride(req.EnvironmentID, req.Metadata)
	if err != nil {
		return region.Region{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.createRegionLocked(ctx, region.Region{
		ID:          req.ID,
		MapID:       req.MapID,
		Name:        req.Name,
		Cells:       req.Cells,
		NestedMapID: req.NestedMapID,
		Override:    override,
	})
}

func (s *editorServiceImpl) createRegionLocked(ctx context.Context, r region.Region) (region.Region, error) {
	prepared, err := s.regions.Prepare(r)
	if err != nil {
		return region.Region{}, err
	}
	if err := s.persistRegion(ctx, prepared, true); err != nil {
		return region.Region{}, err
	}
	created, err := s.regions.Create(prepared)
	if err != nil {
		return region.Region{}, err
	}

	log.Printf("Created region %s (%q, %d cells) on map %s", created.ID, created.Name, len(created.Cells), created.MapID)
	s.changed(MapEvent{Type: EventRegionCreated, MapID: created.MapID, RegionID: created.ID})
	return created, nil
}

// UpdateRegion changes a region's name, override or nested map link
func (s *editorServiceImpl) UpdateRegion(ctx context.Context, regionID string, req UpdateRegionRequest) (region.Region, error) {
	u := region.Update{Name: req.Name, NestedMapID: req.NestedMapID}
	switch {
	case req.ClearOverride:
		none := region.NoOverride()
		u.Override = &none
	case req.EnvironmentID != nil || req.Metadata != nil:
		envID := ""
		if req.EnvironmentID != nil {
			envID = *req.EnvironmentID
		}
		o, err := region.ParseOverride(envID, req.Metadata)
		if err != nil {
			return region.Region{}, err
		}
		u.Override = &o
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}

	return s.editRegion(ctx, regionID, u.Apply)
}

// AddCells adds cells to a region
func (s *editorServiceImpl) AddCells(ctx context.Context, regionID string, cells []coords.Cell) (region.Region, error) {
	return s.editRegion(ctx, regionID, func(r region.Region) region.Region {
		return region.WithCells(r, cells)
	})
}

// RemoveCells removes cells from a region. Other regions keep theirs.
func (s *editorServiceImpl) RemoveCells(ctx context.Context, regionID string, cells []coords.Cell) (region.Region, error) {
	return s.editRegion(ctx, regionID, func(r region.Region) region.Region {
		return region.WithoutCells(r, cells)
	})
}

// editRegion applies fn to a region and runs the write path: validate,
// persist with retry, then commit.
func (s *editorServiceImpl) editRegion(ctx context.Context, regionID string, fn func(region.Region) region.Region) (region.Region, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.regions.Get(regionID)
	if err != nil {
		return region.Region{}, err
	}
	next := fn(current)
	if err := s.regions.Validate(next); err != nil {
		return region.Region{}, err
	}
	if err := s.persistRegion(ctx, next, false); err != nil {
		return region.Region{}, err
	}
	saved, err := s.regions.Save(next)
	if err != nil {
		return region.Region{}, err
	}

	s.changed(MapEvent{Type: EventRegionUpdated, MapID: saved.MapID, RegionID: saved.ID})
	return saved, nil
}

// DeleteRegion removes a region. The base region cannot be deleted.
func (s *editorServiceImpl) DeleteRegion(ctx context.Context, regionID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	r, err := s.regions.Get(regionID)
	if err != nil {
		return err
	}
	if s.regions.IsBase(r) {
		return fmt.Errorf("%w: %s", ErrBaseRegionProtected, regionID)
	}
	if err := s.deleteRecord(ctx, func() error { return s.backend.DeleteRegion(ctx, regionID) }); err != nil {
		return fmt.Errorf("failed to delete region: %w", err)
	}
	if err := s.regions.Delete(regionID); err != nil {
		return err
	}

	s.changed(MapEvent{Type: EventRegionDeleted, MapID: r.MapID, RegionID: regionID})
	return nil
}

func (s *editorServiceImpl) persistRegion(ctx context.Context, r region.Region, create bool) error {
	err := store.Retry(ctx, s.retry, func() error {
		var err error
		if create {
			_, err = s.backend.CreateRegion(ctx, r)
		} else {
			_, err = s.backend.UpdateRegion(ctx, r)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save region %s: %w", r.ID, err)
	}
	return nil
}

// ListPlacements returns the placements of a map
func (s *editorServiceImpl) ListPlacements(ctx context.Context, mapID string) ([]store.Placement, error) {
	if _, err := s.mapRecord(mapID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Placement{}, s.placements[mapID]...), nil
}

// CreatePlacement adds a placement marker. Markers outside the image are
// rejected.
func (s *editorServiceImpl) CreatePlacement(ctx context.Context, req CreatePlacementRequest) (store.Placement, error) {
	rec, err := s.mapRecord(req.MapID)
	if err != nil {
		return store.Placement{}, err
	}
	p := store.Placement{
		ID:    uuid.NewString(),
		MapID: req.MapID,
		Name:  strings.TrimSpace(req.Name),
		Kind:  strings.TrimSpace(req.Kind),
		X:     req.X,
		Y:     req.Y,
	}
	if p.X < 0 || p.Y < 0 || p.X >= float64(rec.Config.ImageWidth) || p.Y >= float64(rec.Config.ImageHeight) {
		return store.Placement{}, fmt.Errorf("%w: placement (%g, %g) outside the %dx%d image",
			ErrInvalidRequest, p.X, p.Y, rec.Config.ImageWidth, rec.Config.ImageHeight)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = store.Retry(ctx, s.retry, func() error {
		created, err := s.backend.CreatePlacement(ctx, p)
		if err == nil {
			p = created
		}
		return err
	})
	if err != nil {
		return store.Placement{}, fmt.Errorf("failed to save placement: %w", err)
	}

	s.mu.Lock()
	s.placements[p.MapID] = append(s.placements[p.MapID], p)
	s.mu.Unlock()

	s.changed(MapEvent{Type: EventPlacementCreated, MapID: p.MapID, PlacementID: p.ID})
	return p, nil
}

// DeletePlacement removes a placement marker
func (s *editorServiceImpl) DeletePlacement(ctx context.Context, placementID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	mapID, ok := s.placementMap(placementID)
	if !ok {
		return fmt.Errorf("placement %s: %w", placementID, store.ErrNotFound)
	}
	err := store.Retry(ctx, s.retry, func() error { return s.backend.DeletePlacement(ctx, placementID) })
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete placement: %w", err)
	}

	s.mu.Lock()
	kept := s.placements[mapID][:0:0]
	for _, p := range s.placements[mapID] {
		if p.ID != placementID {
			kept = append(kept, p)
		}
	}
	s.placements[mapID] = kept
	s.mu.Unlock()

	s.changed(MapEvent{Type: EventPlacementDeleted, MapID: mapID, PlacementID: placementID})
	return nil
}

func (s *editorServiceImpl) placementMap(placementID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for mapID, placements := range s.placements {
		for _, p := range placements {
			if p.ID == placementID {
				return mapID, true
			}
		}
	}
	return "", false
}

// changed records a committed edit, publishes it and schedules the map's
// background refresh. Callers hold writeMu.
func (s *editorServiceImpl) changed(ev MapEvent) {
	s.mu.Lock()
	s.edits[ev.MapID]++
	s.mu.Unlock()
	s.events.publish(ev)
	s.refresher.Trigger(ev.MapID)
}

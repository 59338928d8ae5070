package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

const (
	// DefaultRefreshDelay debounces the background reload after edits.
	DefaultRefreshDelay = 500 * time.Millisecond
	// BaseRegionName names the region created with every map.
	BaseRegionName = "Base"
	// loadConcurrency bounds how many maps Load reads at once.
	loadConcurrency = 4
)

var (
	ErrMapNotFound         = errors.New("map not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrEmptySelection      = errors.New("selection is empty")
	ErrBaseRegionProtected = errors.New("base region cannot be deleted")
)

// Options tunes the editor service.
type Options struct {
	// RefreshDelay is the debounce before reloading a map from the backend
	// after an edit. Zero uses DefaultRefreshDelay; negative disables it.
	RefreshDelay time.Duration
	// Retry bounds backend write retries. Zero uses store.DefaultRetryPolicy.
	Retry store.RetryPolicy
}

// editorServiceImpl implements the EditorService interface
type editorServiceImpl struct {
	backend  store.Backend
	sessions SessionManager
	presets  PresetManager
	regions  *region.Store
	retry    store.RetryPolicy

	maps       map[string]store.MapRecord
	placements map[string][]store.Placement
	edits      map[string]uint64
	mu         sync.RWMutex

	// writeMu serialises validate, persist and commit of every edit.
	writeMu sync.Mutex

	refresher *debouncer
	events    *eventBus
}

// NewEditorService creates a new editor service instance
func NewEditorService(backend store.Backend, sessions SessionManager, presets PresetManager, opts Options) EditorService {
	if opts.RefreshDelay == 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = store.DefaultRetryPolicy
	}

	s := &editorServiceImpl{
		backend:    backend,
		sessions:   sessions,
		presets:    presets,
		regions:    region.NewStore(),
		retry:      opts.Retry,
		maps:       make(map[string]store.MapRecord),
		placements: make(map[string][]store.Placement),
		edits:      make(map[string]uint64),
		events:     newEventBus(),
	}
	s.refresher = newDebouncer(opts.RefreshDelay, s.backgroundRefresh)
	return s
}

// Load reads every map from the backend. Maps that fail to load are logged
// and skipped.
func (s *editorServiceImpl) Load(ctx context.Context) error {
	records, err := s.backend.ListMaps(ctx)
	if err != nil {
		return fmt.Errorf("failed to list maps: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, rec := range records {
		if err := s.regions.RegisterMap(rec.ID, rec.Config, rec.BaseRegionID); err != nil {
			log.Printf("Warning: skipping map %s: %v", rec.ID, err)
			continue
		}
		s.mu.Lock()
		s.maps[rec.ID] = rec
		s.mu.Unlock()

		g.Go(func() error {
			if err := s.refreshMap(gctx, rec.ID); err != nil && !errors.Is(err, errRefreshSuperseded) {
				log.Printf("Warning: failed to load map %s: %v", rec.ID, err)
			}
			return nil
		})
	}
	g.Wait()

	log.Printf("Loaded %d maps", len(s.mapIDs()))
	return nil
}

// Close stops pending background refreshes
func (s *editorServiceImpl) Close() {
	s.refresher.Close()
}

// ListPresets returns the available coordinate presets
func (s *editorServiceImpl) ListPresets(ctx context.Context) ([]*preset.Info, error) {
	return s.presets.List()
}

// GetPreset loads one preset
func (s *editorServiceImpl) GetPreset(ctx context.Context, name string) (*preset.Preset, error) {
	p, err := s.presets.Load(name)
	if err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			return nil, s.presetNotFound(name, err)
		}
		return nil, err
	}
	return p, nil
}

// presetNotFound lists the available presets in the error, like the config
// lookup of the session API.
func (s *editorServiceImpl) presetNotFound(name string, err error) error {
	infos, listErr := s.presets.List()
	if listErr != nil || len(infos) == 0 {
		return fmt.Errorf("preset '%s': %w. Use /api/presets to list available presets", name, err)
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.PresetID)
	}
	return fmt.Errorf("preset '%s': %w. Available presets: %v", name, err, ids)
}

// ListMaps returns every map ordered by creation time
func (s *editorServiceImpl) ListMaps(ctx context.Context) ([]*MapInfo, error) {
	s.mu.RLock()
	records := make([]store.MapRecord, 0, len(s.maps))
	for _, rec := range s.maps {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	result := make([]*MapInfo, 0, len(records))
	for _, rec := range records {
		result = append(result, s.mapInfo(rec))
	}
	return result, nil
}

// GetMap returns one map
func (s *editorServiceImpl) GetMap(ctx context.Context, mapID string) (*MapInfo, error) {
	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	return s.mapInfo(rec), nil
}

// CreateMap creates a map and its base region covering every cell
func (s *editorServiceImpl) CreateMap(ctx context.Context, req CreateMapRequest) (*MapInfo, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: map name must not be empty", ErrInvalidRequest)
	}
	cfg, err := s.resolveConfig(req)
	if err != nil {
		return nil, err
	}
	if req.ParentMapID != "" {
		if _, err := s.mapRecord(req.ParentMapID); err != nil {
			return nil, fmt.Errorf("parent map: %w", err)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.createMapLocked(ctx, store.MapRecord{
		ID:             uuid.NewString(),
		Name:           name,
		Config:         cfg,
		ParentMapID:    req.ParentMapID,
		ParentRegionID: req.ParentRegionID,
		ImagePath:      req.ImagePath,
	})
	if err != nil {
		return nil, err
	}
	return s.mapInfo(rec), nil
}

func (s *editorServiceImpl) resolveConfig(req CreateMapRequest) (coords.Config, error) {
	var cfg coords.Config
	switch {
	case req.Config != nil:
		cfg = *req.Config
	case req.Preset != "":
		p, err := s.presets.Load(req.Preset)
		if err != nil {
			if errors.Is(err, preset.ErrPresetNotFound) {
				return coords.Config{}, s.presetNotFound(req.Preset, err)
			}
			return coords.Config{}, err
		}
		cfg = p.Config
	default:
		cfg = s.presets.Default().Config
	}
	if err := cfg.Validate(); err != nil {
		return coords.Config{}, err
	}
	return cfg, nil
}

// createMapLocked registers, persists and commits a map with its base region.
// Nothing is left behind when a step fails.
func (s *editorServiceImpl) createMapLocked(ctx context.Context, rec store.MapRecord) (store.MapRecord, error) {
	rec.BaseRegionID = uuid.NewString()
	if err := s.regions.RegisterMap(rec.ID, rec.Config, rec.BaseRegionID); err != nil {
		return store.MapRecord{}, err
	}

	base, err := s.regions.Prepare(region.Region{
		ID:    rec.BaseRegionID,
		MapID: rec.ID,
		Name:  BaseRegionName,
		Cells: allCells(rec.Config),
	})
	if err != nil {
		s.regions.DeleteMap(rec.ID)
		return store.MapRecord{}, err
	}

	err = store.Retry(ctx, s.retry, func() error {
		created, err := s.backend.CreateMap(ctx, rec)
		if err == nil {
			rec = created
		}
		return err
	})
	if err != nil {
		s.regions.DeleteMap(rec.ID)
		return store.MapRecord{}, fmt.Errorf("failed to save map: %w", err)
	}

	err = store.Retry(ctx, s.retry, func() error {
		_, err := s.backend.CreateRegion(ctx, base)
		return err
	})
	if err != nil {
		s.regions.DeleteMap(rec.ID)
		if delErr := s.backend.DeleteMap(ctx, rec.ID); delErr != nil {
			log.Printf("Warning: failed to roll back map %s: %v", rec.ID, delErr)
		}
		return store.MapRecord{}, fmt.Errorf("failed to save base region: %w", err)
	}

	if _, err := s.regions.Create(base); err != nil {
		return store.MapRecord{}, err
	}
	s.mu.Lock()
	s.maps[rec.ID] = rec
	s.placements[rec.ID] = nil
	s.mu.Unlock()

	log.Printf("Created map %s (%q, %dx%d cells)", rec.ID, rec.Name, rec.Config.CellsX(), rec.Config.CellsY())
	s.events.publish(MapEvent{Type: EventMapUpdated, MapID: rec.ID})
	return rec, nil
}

// RenameMap changes a map's display name
func (s *editorServiceImpl) RenameMap(ctx context.Context, mapID, name string) (*MapInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: map name must not be empty", ErrInvalidRequest)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.mapRecord(mapID)
	if err != nil {
		return nil, err
	}
	rec.Name = name
	err = store.Retry(ctx, s.retry, func() error {
		updated, err := s.backend.UpdateMap(ctx, rec)
		if err == nil {
			rec = updated
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save map: %w", err)
	}

	s.mu.Lock()
	s.maps[rec.ID] = rec
	s.mu.Unlock()

	s.events.publish(MapEvent{Type: EventMapUpdated, MapID: rec.ID})
	return s.mapInfo(rec), nil
}

// DeleteMap removes a map with its regions, placements and open sessions
func (s *editorServiceImpl) DeleteMap(ctx context.Context, mapID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteMapLocked(ctx, mapID)
}

func (s *editorServiceImpl) deleteMapLocked(ctx context.Context, mapID string) error {
	if _, err := s.mapRecord(mapID); err != nil {
		return err
	}

	for _, r := range s.regions.List(mapID) {
		if err := s.deleteRecord(ctx, func() error { return s.backend.DeleteRegion(ctx, r.ID) }); err != nil {
			return fmt.Errorf("failed to delete region %s: %w", r.ID, err)
		}
	}
	s.mu.RLock()
	placements := append([]store.Placement(nil), s.placements[mapID]...)
	s.mu.RUnlock()
	for _, p := range placements {
		if err := s.deleteRecord(ctx, func() error { return s.backend.DeletePlacement(ctx, p.ID) }); err != nil {
			return fmt.Errorf("failed to delete placement %s: %w", p.ID, err)
		}
	}
	if err := s.deleteRecord(ctx, func() error { return s.backend.DeleteMap(ctx, mapID) }); err != nil {
		return fmt.Errorf("failed to delete map: %w", err)
	}

	s.refresher.Cancel(mapID)
	removed := s.regions.DeleteMap(mapID)
	s.mu.Lock()
	delete(s.maps, mapID)
	delete(s.placements, mapID)
	delete(s.edits, mapID)
	s.mu.Unlock()
	closed := s.sessions.DeleteByMap(mapID)

	log.Printf("Deleted map %s (%d regions, %d placements, %d sessions)", mapID, removed, len(placements), closed)
	s.events.publish(MapEvent{Type: EventMapDeleted, MapID: mapID})
	return nil
}

// deleteRecord retries a backend delete. A record already gone counts as
// deleted.
func (s *editorServiceImpl) deleteRecord(ctx context.Context, fn func() error) error {
	err := store.Retry(ctx, s.retry, fn)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *editorServiceImpl) mapRecord(mapID string) (store.MapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.maps[mapID]
	if !ok {
		return store.MapRecord{}, fmt.Errorf("%w: %s", ErrMapNotFound, mapID)
	}
	return rec, nil
}

func (s *editorServiceImpl) mapIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.maps))
	for id := range s.maps {
		ids = append(ids, id)
	}
	return ids
}

func (s *editorServiceImpl) mapInfo(rec store.MapRecord) *MapInfo {
	s.mu.RLock()
	placements := len(s.placements[rec.ID])
	s.mu.RUnlock()

	return &MapInfo{
		ID:             rec.ID,
		Name:           rec.Name,
		Config:         rec.Config,
		BaseRegionID:   rec.BaseRegionID,
		ParentMapID:    rec.ParentMapID,
		ParentRegionID: rec.ParentRegionID,
		ImagePath:      rec.ImagePath,
		CellsX:         rec.Config.CellsX(),
		CellsY:         rec.Config.CellsY(),
		TotalCells:     rec.Config.TotalCells(),
		ZonesX:         rec.Config.ZonesX(),
		ZonesY:         rec.Config.ZonesY(),
		RegionCount:    s.regions.RealRegionCount(rec.ID),
		PlacementCount: placements,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func allCells(cfg coords.Config) []coords.Cell {
	cells := make([]coords.Cell, 0, cfg.TotalCells())
	for y := 0; y < cfg.CellsY(); y++ {
		for x := 0; x < cfg.CellsX(); x++ {
			cells = append(cells, coords.Cell{X: x, Y: y})
		}
	}
	return cells
}

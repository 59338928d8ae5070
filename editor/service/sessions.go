package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/selection"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/session"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/viewport"
)

// DefaultViewport is used when a session is opened without a viewport size.
var DefaultViewport = viewport.Size{Width: 1280, Height: 800}

// OpenSession creates an editing session on a map
func (s *editorServiceImpl) OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionInfo, error) {
	rec, err := s.mapRecord(req.MapID)
	if err != nil {
		return nil, err
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	size := viewport.Size{Width: req.ViewportWidth, Height: req.ViewportHeight}
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultViewport
	}
	ctrl, err := controller.New(rec.ID, rec.Config, size, s.picker(rec.ID))
	if err != nil {
		return nil, err
	}
	if req.Mode != "" && req.Mode != controller.ModeCell {
		if _, err := ctrl.Dispatch(controller.SetMode(req.Mode)); err != nil {
			return nil, err
		}
	}

	sess, err := s.sessions.Create(req.ID, ctrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("Opened session %s on map %s", sess.ID, rec.ID)
	return sessionInfo(sess), nil
}

// picker resolves clicks to the most recently created region under the cell
func (s *editorServiceImpl) picker(mapID string) controller.Picker {
	return func(cell coords.Cell) (string, bool) {
		regions := s.regions.RegionsAt(mapID, cell)
		if len(regions) == 0 {
			return "", false
		}
		return regions[0].ID, true
	}
}

// GetSession retrieves session information
func (s *editorServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all open editing sessions
func (s *editorServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// CloseSession removes a session
func (s *editorServiceImpl) CloseSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}

// Dispatch applies one input action to a session's controller
func (s *editorServiceImpl) Dispatch(ctx context.Context, sessionID string, action controller.Action) (*controller.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state, err := sess.Controller.Dispatch(action)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Selection returns a session's selection with its pixel and world extent
func (s *editorServiceImpl) Selection(ctx context.Context, sessionID string) (*SelectionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	info := &SelectionInfo{
		SessionID: sess.ID,
		MapID:     sess.MapID,
		Cells:     sess.Controller.SelectedCells(),
	}
	info.Count = len(info.Cells)
	if b, ok := sess.Controller.SelectionBounds(); ok {
		rect, wmin, wmax, err := selectionExtent(sess.Controller.Config(), b)
		if err != nil {
			return nil, err
		}
		info.Bounds = &b
		info.PixelRect = &rect
		info.WorldMin = &wmin
		info.WorldMax = &wmax
	}
	return info, nil
}

// SubscribeSession registers fn for state updates of a session
func (s *editorServiceImpl) SubscribeSession(ctx context.Context, sessionID string, fn controller.Listener) (func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	unsubscribe := sess.Controller.Subscribe(fn)
	sess.OnClose(unsubscribe)
	return unsubscribe, nil
}

// CreateRegionFromSelection turns a session's selection into a region. The
// selection is cleared on success and kept when saving fails, so the user can
// retry.
func (s *editorServiceImpl) CreateRegionFromSelection(ctx context.Context, sessionID string, req SelectionRegionRequest) (region.Region, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return region.Region{}, err
	}
	cells := sess.Controller.SelectedCells()
	if len(cells) == 0 {
		return region.Region{}, ErrEmptySelection
	}
	override, err := region.ParseOverride(req.EnvironmentID, req.Metadata)
	if err != nil {
		return region.Region{}, err
	}

	s.writeMu.Lock()
	created, err := s.createRegionLocked(ctx, region.Region{
		MapID:    sess.MapID,
		Name:     req.Name,
		Cells:    cells,
		Override: override,
	})
	s.writeMu.Unlock()
	if err != nil {
		if errors.Is(err, store.ErrPersistence) {
			log.Printf("Warning: region from selection of session %s not saved, selection kept: %v", sess.ID, err)
		}
		return region.Region{}, err
	}

	s.finishSelection(sess, created.ID)
	return created, nil
}

// CreateWorldRegion turns a session's selection into a region linked to a new
// nested map. The nested map's image covers the selection's pixel extent and
// its world size is the matching world span of the parent.
func (s *editorServiceImpl) CreateWorldRegion(ctx context.Context, sessionID string, req WorldRegionRequest) (*WorldRegionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	parent, err := s.mapRecord(sess.MapID)
	if err != nil {
		return nil, err
	}
	cells := sess.Controller.SelectedCells()
	bounds, ok := sess.Controller.SelectionBounds()
	if len(cells) == 0 || !ok {
		return nil, ErrEmptySelection
	}

	childCfg, err := nestedConfig(parent.Config, bounds, req.BaseCellSize, req.ZoneSize)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prepared, err := s.regions.Prepare(region.Region{MapID: parent.ID, Name: req.Name, Cells: cells})
	if err != nil {
		return nil, err
	}
	mapName := strings.TrimSpace(req.MapName)
	if mapName == "" {
		mapName = prepared.Name
	}

	child, err := s.createMapLocked(ctx, store.MapRecord{
		ID:             uuid.NewString(),
		Name:           mapName,
		Config:         childCfg,
		ParentMapID:    parent.ID,
		ParentRegionID: prepared.ID,
		ImagePath:      req.ImagePath,
	})
	if err != nil {
		return nil, err
	}

	prepared.NestedMapID = child.ID
	created, err := s.createRegionLocked(ctx, prepared)
	if err != nil {
		if delErr := s.deleteMapLocked(ctx, child.ID); delErr != nil {
			log.Printf("Warning: failed to roll back nested map %s: %v", child.ID, delErr)
		}
		return nil, err
	}

	s.finishSelection(sess, created.ID)
	return &WorldRegionResult{Region: created, Map: s.mapInfo(child)}, nil
}

// nestedConfig derives the config of a map nested in the selection bounds
func nestedConfig(parent coords.Config, bounds selection.Bounds, cellSize, zoneSize int) (coords.Config, error) {
	rect, wmin, wmax, err := selectionExtent(parent, bounds)
	if err != nil {
		return coords.Config{}, err
	}
	if cellSize <= 0 {
		cellSize = parent.BaseCellSize
	}
	if zoneSize <= 0 {
		zoneSize = parent.ZoneSize
	}
	cfg := coords.Config{
		ImageWidth:   int(rect.Width),
		ImageHeight:  int(rect.Height),
		UnrealWidth:  wmax.X - wmin.X,
		UnrealHeight: wmax.Y - wmin.Y,
		BaseCellSize: cellSize,
		ZoneSize:     zoneSize,
	}
	if err := cfg.Validate(); err != nil {
		return coords.Config{}, err
	}
	return cfg, nil
}

// selectionExtent returns the pixel rectangle of bounds and the world
// coordinates of its corners.
func selectionExtent(cfg coords.Config, b selection.Bounds) (coords.Rect, coords.World, coords.World, error) {
	origin, err := coords.CellToPixel(b.Min, cfg)
	if err != nil {
		return coords.Rect{}, coords.World{}, coords.World{}, err
	}
	size := float64(cfg.BaseCellSize)
	rect := coords.Rect{X: origin.X, Y: origin.Y, Width: float64(b.Width()) * size, Height: float64(b.Height()) * size}

	wmin, err := coords.PixelToWorld(origin, cfg)
	if err != nil {
		return coords.Rect{}, coords.World{}, coords.World{}, err
	}
	wmax, err := coords.PixelToWorld(coords.Pixel{X: rect.X + rect.Width, Y: rect.Y + rect.Height}, cfg)
	if err != nil {
		return coords.Rect{}, coords.World{}, coords.World{}, err
	}
	return rect, wmin, wmax, nil
}

func (s *editorServiceImpl) finishSelection(sess *session.Session, regionID string) {
	if _, err := sess.Controller.Dispatch(controller.ClearSelection()); err != nil {
		log.Printf("Warning: failed to clear selection of session %s: %v", sess.ID, err)
	}
	sess.Controller.SelectRegion(regionID)
}

func (s *editorServiceImpl) session(sessionID string) (*session.Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func sessionInfo(sess *session.Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		MapID:          sess.MapID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          sess.Controller.State(),
	}
}

package service

import (
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/grid"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/selection"
)

// MapInfo provides information about a map
type MapInfo struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Config         coords.Config `json:"config"`
	BaseRegionID   string        `json:"base_region_id,omitempty"`
	ParentMapID    string        `json:"parent_map_id,omitempty"`
	ParentRegionID string        `json:"parent_region_id,omitempty"`
	ImagePath      string        `json:"image_path,omitempty"`
	CellsX         int           `json:"cells_x"`
	CellsY         int           `json:"cells_y"`
	TotalCells     int           `json:"total_cells"`
	ZonesX         int           `json:"zones_x"`
	ZonesY         int           `json:"zones_y"`
	RegionCount    int           `json:"region_count"`
	PlacementCount int           `json:"placement_count"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CreateMapRequest describes a new map. Config wins over Preset; with neither
// the default preset is used.
type CreateMapRequest struct {
	Name           string         `json:"name"`
	Preset         string         `json:"preset,omitempty"`
	Config         *coords.Config `json:"config,omitempty"`
	ImagePath      string         `json:"image_path,omitempty"`
	ParentMapID    string         `json:"parent_map_id,omitempty"`
	ParentRegionID string         `json:"parent_region_id,omitempty"`
}

// CreateRegionRequest describes a new region. EnvironmentID and Metadata are
// the loosely typed override fields of the persisted shape.
type CreateRegionRequest struct {
	MapID         string         `json:"map_id"`
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name"`
	Cells         []coords.Cell  `json:"cells"`
	NestedMapID   string         `json:"nested_map_id,omitempty"`
	EnvironmentID string         `json:"environment_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// UpdateRegionRequest changes a region. Nil fields are left alone. Setting
// EnvironmentID or Metadata replaces the override; ClearOverride removes it.
type UpdateRegionRequest struct {
	Name          *string        `json:"name,omitempty"`
	NestedMapID   *string        `json:"nested_map_id,omitempty"`
	EnvironmentID *string        `json:"environment_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ClearOverride bool           `json:"clear_override,omitempty"`
}

// CreatePlacementRequest describes a placement marker in pixel space
type CreatePlacementRequest struct {
	MapID string  `json:"map_id"`
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// OpenSessionRequest opens an editing session on a map
type OpenSessionRequest struct {
	MapID          string          `json:"map_id"`
	ID             string          `json:"id,omitempty"`
	ViewportWidth  float64         `json:"viewport_width"`
	ViewportHeight float64         `json:"viewport_height"`
	Mode           controller.Mode `json:"mode,omitempty"`
}

// SessionInfo provides information about an editing session
type SessionInfo struct {
	ID             string           `json:"id"`
	MapID          string           `json:"map_id"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	State          controller.State `json:"state"`
}

// SelectionInfo is the committed selection of a session with its pixel and
// world extent.
type SelectionInfo struct {
	SessionID string            `json:"session_id"`
	MapID     string            `json:"map_id"`
	Count     int               `json:"count"`
	Bounds    *selection.Bounds `json:"bounds,omitempty"`
	PixelRect *coords.Rect      `json:"pixel_rect,omitempty"`
	WorldMin  *coords.World     `json:"world_min,omitempty"`
	WorldMax  *coords.World     `json:"world_max,omitempty"`
	Cells     []coords.Cell     `json:"cells"`
}

// SelectionRegionRequest names the region built from a selection
type SelectionRegionRequest struct {
	Name          string         `json:"name"`
	EnvironmentID string         `json:"environment_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// WorldRegionRequest describes the region and nested map built from a
// selection. Zero cell and zone sizes inherit the parent map's.
type WorldRegionRequest struct {
	Name         string `json:"name"`
	MapName      string `json:"map_name,omitempty"`
	BaseCellSize int    `json:"base_cell_size,omitempty"`
	ZoneSize     int    `json:"zone_size,omitempty"`
	ImagePath    string `json:"image_path,omitempty"`
}

// WorldRegionResult is the outcome of CreateWorldRegion
type WorldRegionResult struct {
	Region region.Region `json:"region"`
	Map    *MapInfo      `json:"map"`
}

// Conversion is one pixel expressed in every coordinate space
type Conversion struct {
	Pixel      coords.Pixel `json:"pixel"`
	Cell       coords.Cell  `json:"cell"`
	CellCenter coords.Pixel `json:"cell_center"`
	World      coords.World `json:"world"`
	Zone       coords.Zone  `json:"zone"`
}

// RegionRef names a region covering a cell
type RegionRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Boundary bool   `json:"boundary"`
}

// CellInfo describes what covers one cell
type CellInfo struct {
	Cell             coords.Cell      `json:"cell"`
	Rect             coords.Rect      `json:"rect"`
	World            coords.World     `json:"world"`
	Zone             coords.Zone      `json:"zone"`
	Regions          []RegionRef      `json:"regions"`
	Placements       int              `json:"placements"`
	HasContent       bool             `json:"has_content"`
	OverrideRegionID string           `json:"override_region_id,omitempty"`
	EnvironmentID    string           `json:"environment_id,omitempty"`
	Metadata         *region.Metadata `json:"metadata,omitempty"`
}

// GridView is the grid geometry for the visible part of a session's map
type GridView struct {
	SessionID string      `json:"session_id"`
	Zoom      float64     `json:"zoom"`
	CellSize  int         `json:"cell_size"`
	Rect      coords.Rect `json:"rect"`
	Lines     []grid.Line `json:"lines"`
}

// MapEventType names a change to a map's content
type MapEventType string

const (
	EventMapUpdated       MapEventType = "map_updated"
	EventMapDeleted       MapEventType = "map_deleted"
	EventRegionCreated    MapEventType = "region_created"
	EventRegionUpdated    MapEventType = "region_updated"
	EventRegionDeleted    MapEventType = "region_deleted"
	EventPlacementCreated MapEventType = "placement_created"
	EventPlacementDeleted MapEventType = "placement_deleted"
	EventRefreshed        MapEventType = "refreshed"
)

// MapEvent is published after a map's content changed
type MapEvent struct {
	Type        MapEventType `json:"type"`
	MapID       string       `json:"map_id"`
	RegionID    string       `json:"region_id,omitempty"`
	PlacementID string       `json:"placement_id,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

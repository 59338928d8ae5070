package service

import (
	"context"
	"io"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/completion"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/grid"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/session"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// EditorService defines all map-editor operations
type EditorService interface {
	// Lifecycle
	Load(ctx context.Context) error
	Close()

	// Presets
	ListPresets(ctx context.Context) ([]*preset.Info, error)
	GetPreset(ctx context.Context, name string) (*preset.Preset, error)

	// Maps
	ListMaps(ctx context.Context) ([]*MapInfo, error)
	GetMap(ctx context.Context, mapID string) (*MapInfo, error)
	CreateMap(ctx context.Context, req CreateMapRequest) (*MapInfo, error)
	RenameMap(ctx context.Context, mapID, name string) (*MapInfo, error)
	DeleteMap(ctx context.Context, mapID string) error

	// Regions
	ListRegions(ctx context.Context, mapID string, includeBase bool) ([]region.Region, error)
	GetRegion(ctx context.Context, regionID string) (region.Region, error)
	CreateRegion(ctx context.Context, req CreateRegionRequest) (region.Region, error)
	UpdateRegion(ctx context.Context, regionID string, req UpdateRegionRequest) (region.Region, error)
	AddCells(ctx context.Context, regionID string, cells []coords.Cell) (region.Region, error)
	RemoveCells(ctx context.Context, regionID string, cells []coords.Cell) (region.Region, error)
	DeleteRegion(ctx context.Context, regionID string) error

	// Placements
	ListPlacements(ctx context.Context, mapID string) ([]store.Placement, error)
	CreatePlacement(ctx context.Context, req CreatePlacementRequest) (store.Placement, error)
	DeletePlacement(ctx context.Context, placementID string) error

	// Editing sessions
	OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	CloseSession(ctx context.Context, sessionID string) error
	Dispatch(ctx context.Context, sessionID string, action controller.Action) (*controller.State, error)
	Selection(ctx context.Context, sessionID string) (*SelectionInfo, error)
	SubscribeSession(ctx context.Context, sessionID string, fn controller.Listener) (func(), error)
	CreateRegionFromSelection(ctx context.Context, sessionID string, req SelectionRegionRequest) (region.Region, error)
	CreateWorldRegion(ctx context.Context, sessionID string, req WorldRegionRequest) (*WorldRegionResult, error)

	// Analysis
	Completion(ctx context.Context, mapID string, benchmarkCells int) (*completion.Result, error)
	ZoneCoverage(ctx context.Context, mapID string) (*completion.ZoneReport, error)
	Convert(ctx context.Context, mapID string, p coords.Pixel) (*Conversion, error)
	DescribeCell(ctx context.Context, mapID string, cell coords.Cell) (*CellInfo, error)
	Grid(ctx context.Context, sessionID string) (*GridView, error)
	Overlay(ctx context.Context, mapID string) ([]grid.RegionLayer, error)
	Preview(ctx context.Context, mapID string, width int, w io.Writer) error

	// Events
	SubscribeMap(mapID string, fn func(MapEvent)) func()
}

// SessionManager defines editing session storage operations
type SessionManager interface {
	Create(id string, ctrl *controller.Controller) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []*session.Session
	Delete(id string) error
	DeleteByMap(mapID string) int
	UpdateLastAccessed(id string) error
}

// PresetManager handles coordinate preset loading
type PresetManager interface {
	Load(name string) (*preset.Preset, error)
	List() ([]*preset.Info, error)
	Default() *preset.Preset
}

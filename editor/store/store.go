package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidID   = errors.New("invalid record id")
	ErrExists      = errors.New("record already exists")
	ErrPersistence = errors.New("persistence failure")
)

// Kind names a record collection.
type Kind string

const (
	KindMap       Kind = "map"
	KindRegion    Kind = "region"
	KindPlacement Kind = "placement"
)

// PersistenceError reports a failed backing-store call. It is recoverable:
// callers keep their in-memory state and may retry.
type PersistenceError struct {
	Op   string
	Kind Kind
	ID   string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("persistence error: %s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match any persistence error.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// MapRecord is a persisted map.
type MapRecord struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Config         coords.Config `json:"config"`
	BaseRegionID   string        `json:"baseRegionId,omitempty"`
	ParentMapID    string        `json:"parentMapId,omitempty"`
	ParentRegionID string        `json:"parentRegionId,omitempty"`
	ImagePath      string        `json:"imagePath,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Placement is a point marker on a map, in image pixel space.
type Placement struct {
	ID        string    `json:"id"`
	MapID     string    `json:"mapId"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pixel returns the placement position.
func (p Placement) Pixel() coords.Pixel {
	return coords.Pixel{X: p.X, Y: p.Y}
}

// Pixels returns the positions of placements.
func Pixels(placements []Placement) []coords.Pixel {
	out := make([]coords.Pixel, len(placements))
	for i, p := range placements {
		out[i] = p.Pixel()
	}
	return out
}

// MapService stores maps.
type MapService interface {
	ListMaps(ctx context.Context) ([]MapRecord, error)
	GetMap(ctx context.Context, id string) (MapRecord, error)
	CreateMap(ctx context.Context, m MapRecord) (MapRecord, error)
	UpdateMap(ctx context.Context, m MapRecord) (MapRecord, error)
	DeleteMap(ctx context.Context, id string) error
}

// RegionService stores regions. ListRegions with an empty map id lists every
// region. Regions are listed in creation order.
type RegionService interface {
	ListRegions(ctx context.Context, mapID string) ([]region.Region, error)
	CreateRegion(ctx context.Context, r region.Region) (region.Region, error)
	UpdateRegion(ctx context.Context, r region.Region) (region.Region, error)
	DeleteRegion(ctx context.Context, id string) error
}

// PlacementService stores placement markers.
type PlacementService interface {
	ListPlacements(ctx context.Context, mapID string) ([]Placement, error)
	CreatePlacement(ctx context.Context, p Placement) (Placement, error)
	DeletePlacement(ctx context.Context, id string) error
}

// Backend bundles the three collaborator services.
type Backend interface {
	MapService
	RegionService
	PlacementService
}

// ValidateID rejects ids that cannot be used as a record file name.
func ValidateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\:`) || strings.Contains(id, "..") || strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

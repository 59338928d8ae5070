package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

var (
	ErrValidation        = errors.New("region validation failed")
	ErrRegionNotFound    = errors.New("region not found")
	ErrMapNotRegistered  = errors.New("map not registered")
	ErrBaseRegionMissing = errors.New("map has no base region")
)

// ValidationError reports a region that cannot be stored as given.
type ValidationError struct {
	RegionID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.RegionID != "" {
		return fmt.Sprintf("validation error on region %s: %s %s", e.RegionID, e.Field, e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Region is a named set of cells on one map.
type Region struct {
	ID          string
	MapID       string
	Name        string
	Cells       []coords.Cell
	Color       string
	NestedMapID string
	Override    Override
}

// CellSet is a set of cells with O(1) membership.
type CellSet map[coords.Cell]struct{}

// NewCellSet builds a set from cells, dropping duplicates.
func NewCellSet(cells []coords.Cell) CellSet {
	set := make(CellSet, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

// Has reports membership of c.
func (s CellSet) Has(c coords.Cell) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in row-major order.
func (s CellSet) Sorted() []coords.Cell {
	cells := make([]coords.Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

// CellSet returns the region's cells as a set.
func (r Region) CellSet() CellSet {
	return NewCellSet(r.Cells)
}

// Clone returns a deep copy of r.
func (r Region) Clone() Region {
	out := r
	out.Cells = append([]coords.Cell(nil), r.Cells...)
	if r.Override.DangerLevel != nil {
		d := *r.Override.DangerLevel
		out.Override.DangerLevel = &d
	}
	return out
}

// IsCellOnBoundary reports whether any 4-connected neighbour of cell is
// missing from cells or outside the map.
func IsCellOnBoundary(cell coords.Cell, cells CellSet, cfg coords.Config) bool {
	neighbours := [4]coords.Cell{
		{X: cell.X - 1, Y: cell.Y},
		{X: cell.X + 1, Y: cell.Y},
		{X: cell.X, Y: cell.Y - 1},
		{X: cell.X, Y: cell.Y + 1},
	}
	for _, n := range neighbours {
		if !cfg.Contains(n) || !cells.Has(n) {
			return true
		}
	}
	return false
}

// ColorFor derives a stable #rrggbb colour from a region id.
func ColorFor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	hue := float64(h.Sum32()%360)
	return colorful.Hsl(hue, 0.65, 0.55).Hex()
}

type persistedRegion struct {
	ID            string         `json:"id"`
	MapID         string         `json:"mapId"`
	Name          string         `json:"name"`
	Cells         []coords.Cell  `json:"cells"`
	Color         string         `json:"color"`
	NestedMapID   string         `json:"nestedMapId,omitempty"`
	EnvironmentID string         `json:"environmentId,omitempty"`
	Metadata      map[string]any `json:"metadata"`
}

// MarshalJSON writes the persisted region shape.
func (r Region) MarshalJSON() ([]byte, error) {
	envID, md := r.Override.Persisted()
	metadata := map[string]any{}
	if md.Biome != "" {
		metadata["biome"] = md.Biome
	}
	if md.Climate != "" {
		metadata["climate"] = md.Climate
	}
	if md.DangerLevel != nil {
		metadata["dangerLevel"] = *md.DangerLevel
	}
	cells := r.Cells
	if cells == nil {
		cells = []coords.Cell{}
	}
	return json.Marshal(persistedRegion{
		ID:            r.ID,
		MapID:         r.MapID,
		Name:          r.Name,
		Cells:         cells,
		Color:         r.Color,
		NestedMapID:   r.NestedMapID,
		EnvironmentID: envID,
		Metadata:      metadata,
	})
}

// UnmarshalJSON reads the persisted region shape, coercing loosely typed
// metadata into an Override.
func (r *Region) UnmarshalJSON(data []byte) error {
	var p persistedRegion
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	override, err := ParseOverride(p.EnvironmentID, p.Metadata)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			vErr.RegionID = p.ID
		}
		return err
	}
	*r = Region{
		ID:          p.ID,
		MapID:       p.MapID,
		Name:        p.Name,
		Cells:       p.Cells,
		Color:       p.Color,
		NestedMapID: p.NestedMapID,
		Override:    override,
	}
	return nil
}

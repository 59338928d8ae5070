package region

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/multierr"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

// maxReportedCells caps how many offending cells a ValidationError lists.
const maxReportedCells = 5

type entry struct {
	region Region
	set    CellSet
}

type mapEntry struct {
	config       coords.Config
	baseRegionID string
	regions      *orderedmap.OrderedMap[string, *entry]
}

// Store is the in-memory, authoritative set of regions for every open map.
// Regions of a map are kept in creation order.
type Store struct {
	maps   map[string]*mapEntry
	owners map[string]string // region id -> map id
	mu     sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		maps:   make(map[string]*mapEntry),
		owners: make(map[string]string),
	}
}

// RegisterMap makes a map known to the store. Registering an existing map
// updates its config and base region id and keeps its regions.
func (s *Store) RegisterMap(mapID string, cfg coords.Config, baseRegionID string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.maps[mapID]; ok {
		m.config = cfg
		m.baseRegionID = baseRegionID
		return nil
	}
	s.maps[mapID] = &mapEntry{
		config:       cfg,
		baseRegionID: baseRegionID,
		regions:      orderedmap.New[string, *entry](),
	}
	return nil
}

// HasMap reports whether mapID is registered.
func (s *Store) HasMap(mapID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.maps[mapID]
	return ok
}

// Config returns the coordinate config of a registered map.
func (s *Store) Config(mapID string) (coords.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[mapID]
	if !ok {
		return coords.Config{}, fmt.Errorf("%w: %s", ErrMapNotRegistered, mapID)
	}
	return m.config, nil
}

// SetBaseRegion records which region is the map's base region.
func (s *Store) SetBaseRegion(mapID, regionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[mapID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMapNotRegistered, mapID)
	}
	m.baseRegionID = regionID
	return nil
}

// BaseRegionID returns the recorded base region id of a map.
func (s *Store) BaseRegionID(mapID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[mapID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMapNotRegistered, mapID)
	}
	if m.baseRegionID == "" {
		return "", fmt.Errorf("%w: %s", ErrBaseRegionMissing, mapID)
	}
	return m.baseRegionID, nil
}

// IsBase reports whether r is the base region of its map. The decision is
// made only by comparing r.ID with the map's recorded base region id.
func (s *Store) IsBase(r Region) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isBaseLocked(r.MapID, r.ID)
}

func (s *Store) isBaseLocked(mapID, regionID string) bool {
	m, ok := s.maps[mapID]
	return ok && m.baseRegionID != "" && m.baseRegionID == regionID
}

// Prepare normalises r and validates it for creation without storing it.
// A missing id is assigned, duplicate cells are dropped, cells are sorted
// row-major and the colour is derived from the id.
func (s *Store) Prepare(r Region) (Region, error) {
	r = r.Clone()
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Cells = NewCellSet(r.Cells).Sorted()
	r.Color = ColorFor(r.ID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	if _, exists := s.owners[r.ID]; exists {
		err = multierr.Append(err, &ValidationError{RegionID: r.ID, Field: "id", Reason: "already exists"})
	}
	err = multierr.Append(err, s.validateLocked(r))
	if err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate checks r against its map without looking at id uniqueness. All
// violations are returned combined with multierr.
func (s *Store) Validate(r Region) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(r)
}

func (s *Store) validateLocked(r Region) error {
	m, ok := s.maps[r.MapID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMapNotRegistered, r.MapID)
	}

	var err error
	if strings.TrimSpace(r.Name) == "" {
		err = multierr.Append(err, &ValidationError{RegionID: r.ID, Field: "name", Reason: "must not be empty"})
	}
	if len(r.Cells) == 0 {
		err = multierr.Append(err, &ValidationError{RegionID: r.ID, Field: "cells", Reason: "must not be empty"})
	}

	var outside []coords.Cell
	count := 0
	for _, c := range r.Cells {
		if !m.config.Contains(c) {
			count++
			if len(outside) < maxReportedCells {
				outside = append(outside, c)
			}
		}
	}
	if count > 0 {
		err = multierr.Append(err, &ValidationError{
			RegionID: r.ID,
			Field:    "cells",
			Reason: fmt.Sprintf("%d cells outside the map range 0..%d x 0..%d, e.g. %v",
				count, m.config.CellsX()-1, m.config.CellsY()-1, outside),
		})
	}

	if oErr := r.Override.Validate(); oErr != nil {
		if vErr, ok := oErr.(*ValidationError); ok {
			vErr.RegionID = r.ID
		}
		err = multierr.Append(err, oErr)
	}
	return err
}

// Create validates r and stores it.
func (s *Store) Create(r Region) (Region, error) {
	prepared, err := s.Prepare(r)
	if err != nil {
		return Region{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.owners[prepared.ID]; exists {
		return Region{}, &ValidationError{RegionID: prepared.ID, Field: "id", Reason: "already exists"}
	}
	m, ok := s.maps[prepared.MapID]
	if !ok {
		return Region{}, fmt.Errorf("%w: %s", ErrMapNotRegistered, prepared.MapID)
	}
	m.regions.Set(prepared.ID, &entry{region: prepared, set: NewCellSet(prepared.Cells)})
	s.owners[prepared.ID] = prepared.MapID
	return prepared.Clone(), nil
}

// Save replaces an existing region after validation. The region keeps its
// place in creation order and its map.
func (s *Store) Save(r Region) (Region, error) {
	r = r.Clone()
	r.Name = strings.TrimSpace(r.Name)
	r.Cells = NewCellSet(r.Cells).Sorted()
	r.Color = ColorFor(r.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	mapID, ok := s.owners[r.ID]
	if !ok {
		return Region{}, fmt.Errorf("%w: %s", ErrRegionNotFound, r.ID)
	}
	if r.MapID != mapID {
		return Region{}, &ValidationError{RegionID: r.ID, Field: "mapId", Reason: "cannot move a region to another map"}
	}
	if err := s.validateLocked(r); err != nil {
		return Region{}, err
	}
	s.maps[mapID].regions.Set(r.ID, &entry{region: r, set: NewCellSet(r.Cells)})
	return r.Clone(), nil
}

// Get returns a copy of a region.
func (s *Store) Get(id string) (Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entryLocked(id)
	if err != nil {
		return Region{}, err
	}
	return e.region.Clone(), nil
}

func (s *Store) entryLocked(id string) (*entry, error) {
	mapID, ok := s.owners[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	e, ok := s.maps[mapID].regions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	return e, nil
}

// List returns every region of a map, base region included, in creation order.
func (s *Store) List(mapID string) []Region {
	return s.collect(mapID, true)
}

// Overlay returns the regions to render for a map: every region except the
// base region, in creation order.
func (s *Store) Overlay(mapID string) []Region {
	return s.collect(mapID, false)
}

// RealRegionCount is the number of regions excluding the base region.
func (s *Store) RealRegionCount(mapID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.maps[mapID]
	if !ok {
		return 0
	}
	n := m.regions.Len()
	if _, ok := m.regions.Get(m.baseRegionID); ok && m.baseRegionID != "" {
		n--
	}
	return n
}

func (s *Store) collect(mapID string, includeBase bool) []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maps[mapID]
	if !ok {
		return []Region{}
	}
	result := make([]Region, 0, m.regions.Len())
	for pair := m.regions.Oldest(); pair != nil; pair = pair.Next() {
		if !includeBase && s.isBaseLocked(mapID, pair.Key) {
			continue
		}
		result = append(result, pair.Value.region.Clone())
	}
	return result
}

// Update holds the optional field changes applied by Update.
type Update struct {
	Name        *string
	Override    *Override
	NestedMapID *string
}

// Apply returns r with the update applied. r is not modified.
func (u Update) Apply(r Region) Region {
	r = r.Clone()
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Override != nil {
		r.Override = *u.Override
	}
	if u.NestedMapID != nil {
		r.NestedMapID = *u.NestedMapID
	}
	return r
}

// Update changes a region's name, override or nested map link.
func (s *Store) Update(id string, u Update) (Region, error) {
	r, err := s.Get(id)
	if err != nil {
		return Region{}, err
	}
	return s.Save(u.Apply(r))
}

// WithCells returns r with cells added.
func WithCells(r Region, cells []coords.Cell) Region {
	r = r.Clone()
	r.Cells = append(r.Cells, cells...)
	r.Cells = NewCellSet(r.Cells).Sorted()
	return r
}

// WithoutCells returns r with cells removed.
func WithoutCells(r Region, cells []coords.Cell) Region {
	r = r.Clone()
	set := r.CellSet()
	for _, c := range cells {
		delete(set, c)
	}
	r.Cells = set.Sorted()
	return r
}

// AddCells adds cells to a region. Out-of-range cells reject the whole call.
func (s *Store) AddCells(id string, cells []coords.Cell) (Region, error) {
	r, err := s.Get(id)
	if err != nil {
		return Region{}, err
	}
	return s.Save(WithCells(r, cells))
}

// RemoveCells removes cells from a region. Other regions claiming the same
// cells are untouched. Removing every cell is rejected; delete the region
// instead.
func (s *Store) RemoveCells(id string, cells []coords.Cell) (Region, error) {
	r, err := s.Get(id)
	if err != nil {
		return Region{}, err
	}
	return s.Save(WithoutCells(r, cells))
}

// Delete removes one region. Deleting the base region clears the map's base
// region id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapID, ok := s.owners[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegionNotFound, id)
	}
	m := s.maps[mapID]
	m.regions.Delete(id)
	delete(s.owners, id)
	if m.baseRegionID == id {
		m.baseRegionID = ""
	}
	return nil
}

// DeleteMap removes every region of a map and forgets the map. It returns the
// number of regions removed.
func (s *Store) DeleteMap(mapID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.maps[mapID]
	if !ok {
		return 0
	}
	removed := 0
	for pair := m.regions.Oldest(); pair != nil; pair = pair.Next() {
		delete(s.owners, pair.Key)
		removed++
	}
	delete(s.maps, mapID)
	return removed
}

// Replace swaps the regions of a map for regions loaded from the backing
// store. Invalid regions are skipped and reported; valid ones are kept.
func (s *Store) Replace(mapID string, regions []Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.maps[mapID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMapNotRegistered, mapID)
	}

	fresh := orderedmap.New[string, *entry]()
	var errs error
	for _, r := range regions {
		r = r.Clone()
		r.MapID = mapID
		r.Cells = NewCellSet(r.Cells).Sorted()
		r.Color = ColorFor(r.ID)
		if r.ID == "" {
			errs = multierr.Append(errs, &ValidationError{Field: "id", Reason: "must not be empty"})
			continue
		}
		if owner, taken := s.owners[r.ID]; taken && owner != mapID {
			errs = multierr.Append(errs, &ValidationError{RegionID: r.ID, Field: "id", Reason: "already used on map " + owner})
			continue
		}
		if err := s.validateLocked(r); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fresh.Set(r.ID, &entry{region: r, set: NewCellSet(r.Cells)})
	}

	for pair := m.regions.Oldest(); pair != nil; pair = pair.Next() {
		delete(s.owners, pair.Key)
	}
	for pair := fresh.Oldest(); pair != nil; pair = pair.Next() {
		s.owners[pair.Key] = mapID
	}
	m.regions = fresh
	return errs
}

// RegionsAt returns the non-base regions covering cell, most recently created
// first. Click-picking takes the first entry.
func (s *Store) RegionsAt(mapID string, cell coords.Cell) []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.maps[mapID]
	if !ok {
		return nil
	}
	var result []Region
	for pair := m.regions.Newest(); pair != nil; pair = pair.Prev() {
		if s.isBaseLocked(mapID, pair.Key) {
			continue
		}
		if pair.Value.set.Has(cell) {
			result = append(result, pair.Value.region.Clone())
		}
	}
	return result
}

// OverrideAt resolves the environment override for a cell: the most recently
// created non-base region with an override wins. The id of the winning region
// is returned with it.
func (s *Store) OverrideAt(mapID string, cell coords.Cell) (Override, string, bool) {
	for _, r := range s.RegionsAt(mapID, cell) {
		if !r.Override.IsZero() {
			return r.Override, r.ID, true
		}
	}
	return NoOverride(), "", false
}

// IsCellOnBoundary reports whether cell lies on the edge of the region.
func (s *Store) IsCellOnBoundary(regionID string, cell coords.Cell) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entryLocked(regionID)
	if err != nil {
		return false, err
	}
	return IsCellOnBoundary(cell, e.set, s.maps[e.region.MapID].config), nil
}

// CoveredCells returns the union of the cells of every non-base region of a
// map.
func (s *Store) CoveredCells(mapID string) CellSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(CellSet)
	m, ok := s.maps[mapID]
	if !ok {
		return out
	}
	for pair := m.regions.Oldest(); pair != nil; pair = pair.Next() {
		if s.isBaseLocked(mapID, pair.Key) {
			continue
		}
		for c := range pair.Value.set {
			out[c] = struct{}{}
		}
	}
	return out
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

const (
	mapsDir       = "maps"
	regionsDir    = "regions"
	placementsDir = "placements"
)

// regionRecord wraps the persisted region shape with its creation sequence so
// listing order survives restarts.
type regionRecord struct {
	Seq       uint64        `json:"seq"`
	CreatedAt time.Time     `json:"createdAt"`
	Region    region.Region `json:"region"`
}

// FileStore implements Backend with one JSON file per record under a data
// directory.
type FileStore struct {
	dir string
	seq uint64
	now func() time.Time
	mu  sync.RWMutex
}

// NewFileStore creates the collection directories under dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{mapsDir, regionsDir, placementsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	fs := &FileStore{dir: dir, now: time.Now}

	records, err := fs.readRegionRecords()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Seq > fs.seq {
			fs.seq = rec.Seq
		}
	}
	return fs, nil
}

// Dir returns the data directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// ListMaps returns every map ordered by creation time.
func (fs *FileStore) ListMaps(ctx context.Context) ([]MapRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var maps []MapRecord
	err := fs.readAll(mapsDir, func(data []byte) error {
		var m MapRecord
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		maps = append(maps, m)
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: KindMap, Err: err}
	}
	sort.SliceStable(maps, func(i, j int) bool {
		if !maps[i].CreatedAt.Equal(maps[j].CreatedAt) {
			return maps[i].CreatedAt.Before(maps[j].CreatedAt)
		}
		return maps[i].ID < maps[j].ID
	})
	return maps, nil
}

// GetMap loads one map.
func (fs *FileStore) GetMap(ctx context.Context, id string) (MapRecord, error) {
	if err := ValidateID(id); err != nil {
		return MapRecord{}, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var m MapRecord
	if err := fs.read(mapsDir, id, &m); err != nil {
		return MapRecord{}, fs.wrap("get", KindMap, id, err)
	}
	return m, nil
}

// CreateMap stores a new map. A missing id is generated.
func (fs *FileStore) CreateMap(ctx context.Context, m MapRecord) (MapRecord, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := ValidateID(m.ID); err != nil {
		return MapRecord{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.exists(mapsDir, m.ID) {
		return MapRecord{}, fmt.Errorf("%w: %s %s", ErrExists, KindMap, m.ID)
	}
	now := fs.now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := fs.write(mapsDir, m.ID, m); err != nil {
		return MapRecord{}, &PersistenceError{Op: "create", Kind: KindMap, ID: m.ID, Err: err}
	}
	return m, nil
}

// UpdateMap replaces an existing map, keeping its creation time.
func (fs *FileStore) UpdateMap(ctx context.Context, m MapRecord) (MapRecord, error) {
	if err := ValidateID(m.ID); err != nil {
		return MapRecord{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var existing MapRecord
	if err := fs.read(mapsDir, m.ID, &existing); err != nil {
		return MapRecord{}, fs.wrap("update", KindMap, m.ID, err)
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = fs.now().UTC()
	if err := fs.write(mapsDir, m.ID, m); err != nil {
		return MapRecord{}, &PersistenceError{Op: "update", Kind: KindMap, ID: m.ID, Err: err}
	}
	return m, nil
}

// DeleteMap removes a map file. Regions and placements are removed by the
// caller so each deletion can be retried on its own.
func (fs *FileStore) DeleteMap(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.wrap("delete", KindMap, id, fs.remove(mapsDir, id))
}

// ListRegions returns the regions of a map, or of every map when mapID is
// empty, in creation order.
func (fs *FileStore) ListRegions(ctx context.Context, mapID string) ([]region.Region, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	records, err := fs.readRegionRecords()
	if err != nil {
		return nil, err
	}
	regions := make([]region.Region, 0, len(records))
	for _, rec := range records {
		if mapID == "" || rec.Region.MapID == mapID {
			regions = append(regions, rec.Region)
		}
	}
	return regions, nil
}

// CreateRegion stores a new region. A missing id is generated.
func (fs *FileStore) CreateRegion(ctx context.Context, r region.Region) (region.Region, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := ValidateID(r.ID); err != nil {
		return region.Region{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.exists(regionsDir, r.ID) {
		return region.Region{}, fmt.Errorf("%w: %s %s", ErrExists, KindRegion, r.ID)
	}
	fs.seq++
	rec := regionRecord{Seq: fs.seq, CreatedAt: fs.now().UTC(), Region: r}
	if err := fs.write(regionsDir, r.ID, rec); err != nil {
		return region.Region{}, &PersistenceError{Op: "create", Kind: KindRegion, ID: r.ID, Err: err}
	}
	return r, nil
}

// UpdateRegion replaces an existing region, keeping its creation order.
func (fs *FileStore) UpdateRegion(ctx context.Context, r region.Region) (region.Region, error) {
	if err := ValidateID(r.ID); err != nil {
		return region.Region{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	var rec regionRecord
	if err := fs.read(regionsDir, r.ID, &rec); err != nil {
		return region.Region{}, fs.wrap("update", KindRegion, r.ID, err)
	}
	rec.Region = r
	if err := fs.write(regionsDir, r.ID, rec); err != nil {
		return region.Region{}, &PersistenceError{Op: "update", Kind: KindRegion, ID: r.ID, Err: err}
	}
	return r, nil
}

// DeleteRegion removes a region file.
func (fs *FileStore) DeleteRegion(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.wrap("delete", KindRegion, id, fs.remove(regionsDir, id))
}

// ListPlacements returns the placements of a map ordered by creation time.
func (fs *FileStore) ListPlacements(ctx context.Context, mapID string) ([]Placement, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var placements []Placement
	err := fs.readAll(placementsDir, func(data []byte) error {
		var p Placement
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		if mapID == "" || p.MapID == mapID {
			placements = append(placements, p)
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: KindPlacement, Err: err}
	}
	sort.SliceStable(placements, func(i, j int) bool {
		if !placements[i].CreatedAt.Equal(placements[j].CreatedAt) {
			return placements[i].CreatedAt.Before(placements[j].CreatedAt)
		}
		return placements[i].ID < placements[j].ID
	})
	return placements, nil
}

// CreatePlacement stores a new placement. A missing id is generated.
func (fs *FileStore) CreatePlacement(ctx context.Context, p Placement) (Placement, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := ValidateID(p.ID); err != nil {
		return Placement{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.exists(placementsDir, p.ID) {
		return Placement{}, fmt.Errorf("%w: %s %s", ErrExists, KindPlacement, p.ID)
	}
	p.CreatedAt = fs.now().UTC()
	if err := fs.write(placementsDir, p.ID, p); err != nil {
		return Placement{}, &PersistenceError{Op: "create", Kind: KindPlacement, ID: p.ID, Err: err}
	}
	return p, nil
}

// DeletePlacement removes a placement file.
func (fs *FileStore) DeletePlacement(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.wrap("delete", KindPlacement, id, fs.remove(placementsDir, id))
}

func (fs *FileStore) readRegionRecords() ([]regionRecord, error) {
	var records []regionRecord
	err := fs.readAll(regionsDir, func(data []byte) error {
		var rec regionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Kind: KindRegion, Err: err}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Seq != records[j].Seq {
			return records[i].Seq < records[j].Seq
		}
		return records[i].Region.ID < records[j].Region.ID
	})
	return records, nil
}

// wrap turns a missing file into ErrNotFound and any other failure into a
// PersistenceError.
func (fs *FileStore) wrap(op string, kind Kind, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	default:
		return &PersistenceError{Op: op, Kind: kind, ID: id, Err: err}
	}
}

func (fs *FileStore) path(collection, id string) string {
	return filepath.Join(fs.dir, collection, id+".json")
}

func (fs *FileStore) exists(collection, id string) bool {
	_, err := os.Stat(fs.path(collection, id))
	return err == nil
}

func (fs *FileStore) read(collection, id string, v any) error {
	data, err := os.ReadFile(fs.path(collection, id))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return nil
}

// write stores v through a temp file and rename so readers never see a
// partial record.
func (fs *FileStore) write(collection, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}
	target := fs.path(collection, id)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit %s: %w", id, err)
	}
	return nil
}

func (fs *FileStore) remove(collection, id string) error {
	return os.Remove(fs.path(collection, id))
}

func (fs *FileStore) readAll(collection string, fn func([]byte) error) error {
	entries, err := os.ReadDir(filepath.Join(fs.dir, collection))
	if err != nil {
		return fmt.Errorf("failed to read %s directory: %w", collection, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dir, collection, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", entry.Name(), err)
		}
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
)

func createTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return fs
}

func testConfig() coords.Config {
	return coords.Config{ImageWidth: 100, ImageHeight: 100, UnrealWidth: 1000, UnrealHeight: 1000, BaseCellSize: 10, ZoneSize: 5}
}

func TestMapCRUD(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)

	m, err := fs.CreateMap(ctx, MapRecord{Name: "World", Config: testConfig()})
	if err != nil {
		t.Fatalf("CreateMap failed: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Errorf("Expected generated id and timestamp, got %+v", m)
	}

	got, err := fs.GetMap(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMap failed: %v", err)
	}
	if got.Name != "World" || got.Config != testConfig() {
		t.Errorf("Unexpected map %+v", got)
	}

	got.Name = "Renamed"
	got.BaseRegionID = "base"
	updated, err := fs.UpdateMap(ctx, got)
	if err != nil {
		t.Fatalf("UpdateMap failed: %v", err)
	}
	if !updated.CreatedAt.Equal(m.CreatedAt) {
		t.Error("UpdateMap must keep the creation time")
	}

	maps, err := fs.ListMaps(ctx)
	if err != nil || len(maps) != 1 || maps[0].BaseRegionID != "base" {
		t.Errorf("Unexpected list %+v, %v", maps, err)
	}

	if err := fs.DeleteMap(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMap failed: %v", err)
	}
	if _, err := fs.GetMap(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := fs.DeleteMap(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)

	if _, err := fs.CreateMap(ctx, MapRecord{ID: "m1"}); err != nil {
		t.Fatalf("CreateMap failed: %v", err)
	}
	_, err := fs.CreateMap(ctx, MapRecord{ID: "m1"})
	if !errors.Is(err, ErrExists) || errors.Is(err, ErrPersistence) {
		t.Errorf("Expected ErrExists, got %v", err)
	}

	if _, err := fs.CreateRegion(ctx, region.Region{ID: "r1", MapID: "m1"}); err != nil {
		t.Fatalf("CreateRegion failed: %v", err)
	}
	if _, err := fs.CreateRegion(ctx, region.Region{ID: "r1", MapID: "m1"}); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists for region, got %v", err)
	}

	if _, err := fs.CreatePlacement(ctx, Placement{ID: "p1", MapID: "m1"}); err != nil {
		t.Fatalf("CreatePlacement failed: %v", err)
	}
	if _, err := fs.CreatePlacement(ctx, Placement{ID: "p1", MapID: "m1"}); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists for placement, got %v", err)
	}

	calls := 0
	err = Retry(ctx, RetryPolicy{Attempts: 3}, func() error {
		calls++
		_, err := fs.CreateMap(ctx, MapRecord{ID: "m1"})
		return err
	})
	if !errors.Is(err, ErrExists) || calls != 1 {
		t.Errorf("Expected one attempt for a duplicate, got %d calls, err %v", calls, err)
	}
}

func TestRegionOrderSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Ids sort opposite to creation order
	for _, id := range []string{"z", "m", "a"} {
		r := region.Region{ID: id, MapID: "map1", Name: id, Cells: []coords.Cell{{X: 1, Y: 1}}}
		if _, err := fs.CreateRegion(ctx, r); err != nil {
			t.Fatalf("CreateRegion failed: %v", err)
		}
	}
	fs.CreateRegion(ctx, region.Region{ID: "other", MapID: "map2", Name: "o", Cells: []coords.Cell{{X: 0, Y: 0}}})

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	regions, err := reopened.ListRegions(ctx, "map1")
	if err != nil {
		t.Fatalf("ListRegions failed: %v", err)
	}
	if len(regions) != 3 || regions[0].ID != "z" || regions[2].ID != "a" {
		t.Errorf("Expected creation order z,m,a, got %v", regions)
	}

	// New regions continue the sequence after a reopen
	reopened.CreateRegion(ctx, region.Region{ID: "b", MapID: "map1", Name: "b", Cells: []coords.Cell{{X: 2, Y: 2}}})
	regions, _ = reopened.ListRegions(ctx, "map1")
	if regions[len(regions)-1].ID != "b" {
		t.Errorf("Expected b last, got %s", regions[len(regions)-1].ID)
	}

	all, _ := reopened.ListRegions(ctx, "")
	if len(all) != 5 {
		t.Errorf("Expected 5 regions across maps, got %d", len(all))
	}
}

func TestRegionUpdateDelete(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)

	danger := 3
	r := region.Region{
		ID: "r1", MapID: "m", Name: "Swamp", Cells: []coords.Cell{{X: 1, Y: 1}},
		Override: region.InlineOverride("swamp", "", &danger),
	}
	fs.CreateRegion(ctx, r)

	r.Name = "Bog"
	if _, err := fs.UpdateRegion(ctx, r); err != nil {
		t.Fatalf("UpdateRegion failed: %v", err)
	}
	regions, _ := fs.ListRegions(ctx, "m")
	if len(regions) != 1 || regions[0].Name != "Bog" || *regions[0].Override.DangerLevel != 3 {
		t.Errorf("Unexpected regions after update: %+v", regions)
	}

	if _, err := fs.UpdateRegion(ctx, region.Region{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := fs.DeleteRegion(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRegion failed: %v", err)
	}
	if regions, _ := fs.ListRegions(ctx, "m"); len(regions) != 0 {
		t.Error("Expected no regions after delete")
	}
}

func TestPlacements(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fs.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	fs.CreatePlacement(ctx, Placement{ID: "p2", MapID: "m", Name: "Town", X: 15, Y: 25})
	fs.CreatePlacement(ctx, Placement{ID: "p1", MapID: "m", Name: "Inn", X: 5, Y: 5})
	fs.CreatePlacement(ctx, Placement{MapID: "other", Name: "Cave"})

	placements, err := fs.ListPlacements(ctx, "m")
	if err != nil {
		t.Fatalf("ListPlacements failed: %v", err)
	}
	if len(placements) != 2 || placements[0].ID != "p2" {
		t.Errorf("Expected p2 then p1, got %+v", placements)
	}
	if px := Pixels(placements); px[0] != (coords.Pixel{X: 15, Y: 25}) {
		t.Errorf("Unexpected pixel %v", px[0])
	}

	if err := fs.DeletePlacement(ctx, "p1"); err != nil {
		t.Fatalf("DeletePlacement failed: %v", err)
	}
	if err := fs.DeletePlacement(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInvalidIDs(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)

	for _, id := range []string{"../escape", "a/b", `a\b`, " padded", "c:d"} {
		if _, err := fs.GetMap(ctx, id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("GetMap(%q): expected ErrInvalidID, got %v", id, err)
		}
		if _, err := fs.CreateRegion(ctx, region.Region{ID: id}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("CreateRegion(%q): expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestCorruptRecordIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	fs := createTestStore(t)

	if err := os.WriteFile(filepath.Join(fs.Dir(), mapsDir, "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	if _, err := fs.ListMaps(ctx); !errors.Is(err, ErrPersistence) {
		t.Errorf("Expected persistence error, got %v", err)
	}
	if _, err := fs.GetMap(ctx, "bad"); !errors.Is(err, ErrPersistence) {
		t.Errorf("Expected persistence error, got %v", err)
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{Attempts: 3, Min: time.Millisecond, Max: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, policy, func() error {
			calls++
			if calls < 3 {
				return &PersistenceError{Op: "create", Kind: KindRegion, Err: errors.New("disk busy")}
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("Expected success on third call, got %v after %d calls", err, calls)
		}
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, policy, func() error {
			calls++
			return &PersistenceError{Op: "create", Kind: KindRegion, Err: errors.New("disk full")}
		})
		if !errors.Is(err, ErrPersistence) || calls != 3 {
			t.Errorf("Expected persistence error after 3 calls, got %v after %d", err, calls)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, policy, func() error {
			calls++
			return ErrNotFound
		})
		if !errors.Is(err, ErrNotFound) || calls != 1 {
			t.Errorf("Expected single call, got %d", calls)
		}
	})

	t.Run("stops when context is done", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		Retry(cancelled, RetryPolicy{Attempts: 5, Min: time.Second, Max: time.Second}, func() error {
			calls++
			return &PersistenceError{Op: "update", Kind: KindMap, Err: errors.New("timeout")}
		})
		if calls != 1 {
			t.Errorf("Expected one call with a cancelled context, got %d", calls)
		}
	})
}

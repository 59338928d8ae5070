package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/session"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// gatedBackend pauses ListRegions after reading until release is closed.
type gatedBackend struct {
	store.Backend
	gated   atomic.Bool
	listing chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *gatedBackend) ListRegions(ctx context.Context, mapID string) ([]region.Region, error) {
	regions, err := b.Backend.ListRegions(ctx, mapID)
	if b.gated.Load() {
		b.once.Do(func() { close(b.listing) })
		<-b.release
	}
	return regions, err
}

func TestRefreshKeepsEditCommittedDuringRead(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	presets, err := preset.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("preset.NewManager failed: %v", err)
	}
	backend := &gatedBackend{Backend: fs, listing: make(chan struct{}), release: make(chan struct{})}
	s := NewEditorService(backend, session.NewManager(), presets, Options{
		RefreshDelay: -1,
		Retry:        store.RetryPolicy{Attempts: 1},
	}).(*editorServiceImpl)
	defer s.Close()

	ctx := context.Background()
	cfg := coords.Config{ImageWidth: 100, ImageHeight: 100, UnrealWidth: 100, UnrealHeight: 100, BaseCellSize: 10, ZoneSize: 5}
	m, err := s.CreateMap(ctx, CreateMapRequest{Name: "Overworld", Config: &cfg})
	if err != nil {
		t.Fatalf("CreateMap failed: %v", err)
	}

	backend.gated.Store(true)
	done := make(chan error, 1)
	go func() { done <- s.refreshMap(ctx, m.ID) }()
	<-backend.listing

	created, err := s.CreateRegion(ctx, CreateRegionRequest{MapID: m.ID, Name: "Lake", Cells: []coords.Cell{{X: 1, Y: 1}}})
	if err != nil {
		t.Fatalf("CreateRegion failed: %v", err)
	}
	close(backend.release)

	if err := <-done; !errors.Is(err, errRefreshSuperseded) {
		t.Errorf("Expected stale refresh to be discarded, got %v", err)
	}
	if _, err := s.GetRegion(ctx, created.ID); err != nil {
		t.Errorf("Region committed during refresh was lost: %v", err)
	}

	backend.gated.Store(false)
	if err := s.refreshMap(ctx, m.ID); err != nil {
		t.Fatalf("refreshMap failed: %v", err)
	}
	regions, _ := s.ListRegions(ctx, m.ID, false)
	if len(regions) != 1 || regions[0].ID != created.ID {
		t.Errorf("Expected the new region after a fresh reload, got %+v", regions)
	}
}

func TestDebouncer(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	d := newDebouncer(30*time.Millisecond, func(key string) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
	})
	defer d.Close()

	for i := 0; i < 5; i++ {
		d.Trigger("a")
	}
	d.Trigger("b")
	d.Trigger("c")
	d.Cancel("c")

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls["a"] != 1 {
		t.Errorf("Expected one run for a, got %d", calls["a"])
	}
	if calls["b"] != 1 {
		t.Errorf("Expected one run for b, got %d", calls["b"])
	}
	if calls["c"] != 0 {
		t.Errorf("Cancelled key must not run, got %d", calls["c"])
	}
}

func TestDebouncerClosedAndDisabled(t *testing.T) {
	ran := make(chan string, 2)
	d := newDebouncer(10*time.Millisecond, func(key string) { ran <- key })
	d.Trigger("a")
	d.Close()
	d.Trigger("b")

	off := newDebouncer(-1, func(key string) { ran <- key })
	off.Trigger("c")

	select {
	case key := <-ran:
		t.Errorf("Expected no runs, got %s", key)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus(t *testing.T) {
	b := newEventBus()
	var mapEvents, allEvents []MapEvent
	unsubscribe := b.subscribe("m1", func(ev MapEvent) { mapEvents = append(mapEvents, ev) })
	b.subscribe("", func(ev MapEvent) { allEvents = append(allEvents, ev) })

	b.publish(MapEvent{Type: EventRegionCreated, MapID: "m1"})
	b.publish(MapEvent{Type: EventRegionCreated, MapID: "m2"})
	unsubscribe()
	b.publish(MapEvent{Type: EventRegionDeleted, MapID: "m1"})

	if len(mapEvents) != 1 {
		t.Errorf("Expected 1 event for m1 subscriber, got %d", len(mapEvents))
	}
	if len(allEvents) != 3 {
		t.Errorf("Expected 3 events for wildcard subscriber, got %d", len(allEvents))
	}
	if mapEvents[0].String() != "region_created map=m1 region= placement=" {
		t.Errorf("Unexpected event string %q", mapEvents[0].String())
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// refreshTimeout bounds one background reload.
const refreshTimeout = 10 * time.Second

// errRefreshSuperseded reports a reload discarded because an edit committed
// while the backend was being read. That edit has scheduled its own reload.
var errRefreshSuperseded = errors.New("refresh superseded by a newer edit")

// refreshMap reloads a map's regions and placements from the backend. Both
// lists are read concurrently; nothing changes unless both succeed and no
// edit to the map committed since the read started.
func (s *editorServiceImpl) refreshMap(ctx context.Context, mapID string) error {
	var (
		regions    []region.Region
		placements []store.Placement
	)
	edits := s.editCount(mapID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regions, err = s.backend.ListRegions(gctx, mapID)
		return err
	})
	g.Go(func() error {
		var err error
		placements, err = s.backend.ListPlacements(gctx, mapID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.editCount(mapID) != edits {
		return errRefreshSuperseded
	}
	if _, err := s.mapRecord(mapID); err != nil {
		return err
	}
	if err := s.regions.Replace(mapID, regions); err != nil {
		log.Printf("Warning: map %s: skipped invalid regions: %v", mapID, err)
	}
	s.mu.Lock()
	s.placements[mapID] = placements
	s.mu.Unlock()
	return nil
}

// backgroundRefresh runs when an edit's debounce expires. Failures are
// logged and the in-memory state is kept.
func (s *editorServiceImpl) backgroundRefresh(mapID string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.refreshMap(ctx, mapID); err != nil {
		if !errors.Is(err, errRefreshSuperseded) {
			log.Printf("Warning: background refresh of map %s failed: %v", mapID, err)
		}
		return
	}
	s.events.publish(MapEvent{Type: EventRefreshed, MapID: mapID})
}

// editCount returns how many edits to a map have committed.
func (s *editorServiceImpl) editCount(mapID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edits[mapID]
}

// SubscribeMap registers fn for change events of a map. An empty mapID
// receives events of every map. The returned func unsubscribes.
func (s *editorServiceImpl) SubscribeMap(mapID string, fn func(MapEvent)) func() {
	return s.events.subscribe(mapID, fn)
}

// debouncer runs fn for a key once no trigger arrived for delay.
type debouncer struct {
	delay  time.Duration
	fn     func(key string)
	timers map[string]*time.Timer
	closed bool
	mu     sync.Mutex
}

func newDebouncer(delay time.Duration, fn func(key string)) *debouncer {
	return &debouncer{
		delay:  delay,
		fn:     fn,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger restarts the delay for key.
func (d *debouncer) Trigger(key string) {
	if d.delay < 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.timers[key] == t
		if current {
			delete(d.timers, key)
		}
		closed := d.closed
		d.mu.Unlock()
		if current && !closed {
			d.fn(key)
		}
	})
	d.timers[key] = t
}

// Cancel drops a pending run for key.
func (d *debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Close stops every pending run.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// eventBus fans map events out to subscribers.
type eventBus struct {
	subs   map[string]map[int]func(MapEvent)
	nextID int
	mu     sync.RWMutex
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[string]map[int]func(MapEvent))}
}

func (b *eventBus) subscribe(mapID string, fn func(MapEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.subs[mapID] == nil {
		b.subs[mapID] = make(map[int]func(MapEvent))
	}
	b.subs[mapID][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[mapID], id)
		if len(b.subs[mapID]) == 0 {
			delete(b.subs, mapID)
		}
	}
}

func (b *eventBus) publish(ev MapEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	var fns []func(MapEvent)
	for _, fn := range b.subs[ev.MapID] {
		fns = append(fns, fn)
	}
	if ev.MapID != "" {
		for _, fn := range b.subs[""] {
			fns = append(fns, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e MapEvent) String() string {
	return fmt.Sprintf("%s map=%s region=%s placement=%s", e.Type, e.MapID, e.RegionID, e.PlacementID)
}

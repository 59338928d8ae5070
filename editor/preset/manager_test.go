package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

func writePreset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

const smallPreset = `{
  "name": "Small",
  "description": "small test map",
  "config": {"imageWidth": 320, "imageHeight": 240, "unrealWidth": 3200, "unrealHeight": 2400, "baseCellSize": 16, "zoneSize": 4}
}`

const standardPreset = `{
  "name": "Standard",
  "config": {"imageWidth": 4096, "imageHeight": 4096, "unrealWidth": 409600, "unrealHeight": 409600, "baseCellSize": 16, "zoneSize": 8}
}`

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("empty directory falls back to builtin", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if m.Default().Name != "builtin" {
			t.Errorf("Expected builtin default, got %s", m.Default().Name)
		}
	})

	t.Run("standard preferred", func(t *testing.T) {
		dir := t.TempDir()
		writePreset(t, dir, "a-small.json", smallPreset)
		writePreset(t, dir, "standard.json", standardPreset)
		m, _ := NewManager(dir)
		if m.Default().Name != "Standard" {
			t.Errorf("Expected Standard default, got %s", m.Default().Name)
		}
	})

	t.Run("first valid otherwise", func(t *testing.T) {
		dir := t.TempDir()
		writePreset(t, dir, "0-broken.json", `{"config": {"baseCellSize": 0}}`)
		writePreset(t, dir, "small.json", smallPreset)
		m, _ := NewManager(dir)
		if m.Default().Name != "Small" {
			t.Errorf("Expected Small default, got %s", m.Default().Name)
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "small.json", smallPreset)
	writePreset(t, dir, "invalid.json", `{"config": {"imageWidth": 10, "imageHeight": 10, "unrealWidth": 1, "unrealHeight": 1, "baseCellSize": 0, "zoneSize": 1}}`)
	writePreset(t, dir, "garbage.json", `not json`)
	m, _ := NewManager(dir)

	p, err := m.Load("small")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Config.CellsX() != 20 {
		t.Errorf("Expected 20 cells, got %d", p.Config.CellsX())
	}
	if again, _ := m.Load("small.json"); again != p {
		t.Error("Expected cached preset on second load")
	}

	_, err = m.Load("invalid")
	if !errors.Is(err, ErrInvalidPreset) || !errors.Is(err, coords.ErrConfiguration) {
		t.Errorf("Expected invalid preset wrapping a configuration error, got %v", err)
	}
	if _, err := m.Load("garbage"); !errors.Is(err, ErrInvalidPreset) {
		t.Errorf("Expected ErrInvalidPreset, got %v", err)
	}
	if _, err := m.Load("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound, got %v", err)
	}
	if _, err := m.Load("../small"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected path traversal to be rejected, got %v", err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].PresetID != "small" || infos[0].CellsY != 15 {
		t.Errorf("Expected only the valid preset, got %+v", infos)
	}
}

func TestSaveAndSetDefault(t *testing.T) {
	m, _ := NewManager(t.TempDir())

	p := &Preset{Name: "Tiny", Config: coords.Config{ImageWidth: 64, ImageHeight: 64, UnrealWidth: 64, UnrealHeight: 64, BaseCellSize: 8, ZoneSize: 2}}
	if err := m.Save("tiny", p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.SetDefault("tiny"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if m.Default().Name != "Tiny" {
		t.Errorf("Expected Tiny default, got %s", m.Default().Name)
	}

	bad := &Preset{Name: "Bad"}
	if err := m.Save("bad", bad); !errors.Is(err, ErrInvalidPreset) {
		t.Errorf("Expected ErrInvalidPreset, got %v", err)
	}
	if err := m.SetDefault("missing"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound, got %v", err)
	}

	// After a refresh the only preset on disk becomes the default
	m.Refresh()
	if m.Default().Name != "Tiny" {
		t.Errorf("Expected Tiny after refresh, got %s", m.Default().Name)
	}
}

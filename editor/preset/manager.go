package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
)

// DefaultPresetName is preferred as the default when present.
const DefaultPresetName = "standard"

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

// Preset is a named coordinate config template used when creating maps.
type Preset struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Config      coords.Config `json:"config"`
}

// Info summarises a preset file.
type Info struct {
	Filename    string `json:"filename"`
	PresetID    string `json:"preset_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	CellsX      int    `json:"cells_x"`
	CellsY      int    `json:"cells_y"`
}

// Manager loads and caches presets from a directory.
type Manager struct {
	dir           string
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a preset manager. The directory must exist.
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("preset directory does not exist: %s", dir)
	}

	m := &Manager{
		dir:     dir,
		presets: make(map[string]*Preset),
	}
	m.defaultPreset = m.resolveDefault()
	return m, nil
}

// Load returns a preset by id (file name without extension).
func (m *Manager) Load(name string) (*Preset, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}

	m.mu.RLock()
	if p, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(m.dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidPreset, name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPreset, name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, exists := m.presets[name]; exists {
		return cached, nil
	}
	m.presets[name] = &p
	return &p, nil
}

// List returns every valid preset in the directory, sorted by id. Invalid
// files are skipped.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		p, err := m.Load(id)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			Filename:    entry.Name(),
			PresetID:    id,
			Name:        p.Name,
			Description: p.Description,
			ImageWidth:  p.Config.ImageWidth,
			ImageHeight: p.Config.ImageHeight,
			CellsX:      p.Config.CellsX(),
			CellsY:      p.Config.CellsY(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].PresetID < infos[j].PresetID })
	return infos, nil
}

// Default returns the default preset.
func (m *Manager) Default() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault makes a loaded preset the default.
func (m *Manager) SetDefault(name string) error {
	p, err := m.Load(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = p
	return nil
}

// Refresh drops the cache and resolves the default again.
func (m *Manager) Refresh() {
	m.mu.Lock()
	m.presets = make(map[string]*Preset)
	m.mu.Unlock()

	p := m.resolveDefault()

	m.mu.Lock()
	m.defaultPreset = p
	m.mu.Unlock()
}

// Save validates and writes a preset, then caches it.
func (m *Manager) Save(name string, p *Preset) error {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: bad preset id %q", ErrInvalidPreset, name)
	}
	if p == nil {
		return fmt.Errorf("%w: preset cannot be nil", ErrInvalidPreset)
	}
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[name] = p
	m.mu.Unlock()
	return nil
}

// resolveDefault picks the standard preset, else the first valid one, else a
// built-in config.
func (m *Manager) resolveDefault() *Preset {
	if p, err := m.Load(DefaultPresetName); err == nil {
		return p
	}
	infos, err := m.List()
	if err == nil && len(infos) > 0 {
		if p, err := m.Load(infos[0].PresetID); err == nil {
			return p
		}
	}
	return Builtin()
}

// Builtin returns the preset used when the directory has no valid preset.
func Builtin() *Preset {
	return &Preset{
		Name:        "builtin",
		Description: "4096x4096 map, 16px cells, 8x8 cell zones",
		Config: coords.Config{
			ImageWidth:   4096,
			ImageHeight:  4096,
			UnrealWidth:  409600,
			UnrealHeight: 409600,
			BaseCellSize: 16,
			ZoneSize:     8,
		},
	}
}

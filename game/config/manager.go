package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/carcacity/game/engine"
	"github.com/wricardo/carcacity/game/service"
)

var (
	ErrConfigNotFound = errors.New("catalog not found")
	ErrInvalidConfig  = errors.New("invalid catalog")
)

// DefaultCatalogName is loaded as the default when present on disk.
const DefaultCatalogName = "default"

// Manager loads tile catalogs from a directory and caches them
type Manager struct {
	catalogDir     string
	defaultCatalog *engine.TileCatalog
	catalogs       map[string]*engine.TileCatalog
	mu             sync.RWMutex
}

// NewManager creates a catalog manager over catalogDir
func NewManager(catalogDir string) (*Manager, error) {
	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog directory does not exist: %s", catalogDir)
	}

	m := &Manager{
		catalogDir: catalogDir,
		catalogs:   make(map[string]*engine.TileCatalog),
	}
	m.defaultCatalog = m.findDefault()
	return m, nil
}

// LoadCatalog loads a catalog by name, from cache when possible
func (m *Manager) LoadCatalog(name string) (*engine.TileCatalog, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if catalog, ok := m.catalogs[name]; ok {
		m.mu.RUnlock()
		return catalog, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if catalog, ok := m.catalogs[name]; ok {
		return catalog, nil
	}

	data, err := os.ReadFile(filepath.Join(m.catalogDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	catalog := new(engine.TileCatalog)
	if err := json.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := engine.ValidateCatalog(catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.catalogs[name] = catalog
	return catalog, nil
}

// ListCatalogs describes every valid catalog file in the directory. Invalid
// files are skipped.
func (m *Manager) ListCatalogs() ([]*service.CatalogInfo, error) {
	entries, err := os.ReadDir(m.catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var infos []*service.CatalogInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		catalog, err := m.LoadCatalog(id)
		if err != nil {
			continue
		}
		infos = append(infos, describe(id, entry.Name(), catalog))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].CatalogID < infos[j].CatalogID })
	return infos, nil
}

func describe(id, filename string, catalog *engine.TileCatalog) *service.CatalogInfo {
	deck := 0
	for _, t := range catalog.Tiles {
		deck += t.Count
	}
	return &service.CatalogInfo{
		Filename:     filename,
		CatalogID:    id,
		Name:         catalog.Name,
		Description:  catalog.Description,
		Subdivisions: catalog.Subdivisions,
		TileKinds:    len(catalog.Tiles),
		DeckSize:     deck,
	}
}

// GetDefault returns the default catalog
func (m *Manager) GetDefault() *engine.TileCatalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultCatalog
}

// SetDefault sets the default catalog by name
func (m *Manager) SetDefault(name string) error {
	catalog, err := m.LoadCatalog(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCatalog = catalog
	return nil
}

// RefreshCache drops cached catalogs and re-reads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.catalogs = make(map[string]*engine.TileCatalog)
	m.mu.Unlock()

	def := m.findDefault()

	m.mu.Lock()
	m.defaultCatalog = def
	m.mu.Unlock()
}

// Count returns the number of cached catalogs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.catalogs)
}

// findDefault prefers default.json, then the first valid file, then the
// built-in catalog.
func (m *Manager) findDefault() *engine.TileCatalog {
	if catalog, err := m.LoadCatalog(DefaultCatalogName); err == nil {
		return catalog
	}

	infos, err := m.ListCatalogs()
	if err != nil || len(infos) == 0 {
		return engine.DefaultCatalog()
	}
	catalog, err := m.LoadCatalog(infos[0].CatalogID)
	if err != nil {
		return engine.DefaultCatalog()
	}
	return catalog
}

// SaveCatalog validates and writes a catalog to disk
func (m *Manager) SaveCatalog(name string, catalog *engine.TileCatalog) error {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad catalog name %q", ErrInvalidConfig, name)
	}
	if err := engine.ValidateCatalog(catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.catalogDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	m.mu.Lock()
	m.catalogs[name] = catalog
	m.mu.Unlock()
	return nil
}

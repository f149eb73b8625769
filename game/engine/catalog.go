package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var ErrUnknownTile = errors.New("unknown tile")

// LandTypeCatalog answers edge lookups for the fitment engine. Implementations
// return ErrUnknownTile for ids they do not know.
type LandTypeCatalog interface {
	EdgeLandType(tileID string, rotation Rotation, edge Edge) (string, error)
}

// DeckSource lists the tiles a deck is built from.
type DeckSource interface {
	DeckEntries() []TileSpec
}

// TileSpec describes one tile kind in a catalog.
type TileSpec struct {
	ID    string     `json:"id"`
	Image string     `json:"image"`
	Count int        `json:"count"`
	Land  [][]string `json:"land"`
}

// TileCatalog is the static tile set a lobby plays with, loaded from JSON.
type TileCatalog struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Subdivisions int        `json:"subdivisions"`
	Tiles        []TileSpec `json:"tiles"`

	indexOnce sync.Once
	byID      map[string]*TileSpec
}

// ValidateCatalog checks a catalog for correctness and playability.
func ValidateCatalog(catalog *TileCatalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog validation: catalog is nil")
	}
	if catalog.Name == "" {
		return fmt.Errorf("catalog validation: name is required")
	}
	n := catalog.Subdivisions
	if n < 1 || n%2 == 0 {
		return fmt.Errorf("catalog validation: subdivisions must be a positive odd number, got %d", n)
	}
	if len(catalog.Tiles) == 0 {
		return fmt.Errorf("catalog validation: at least one tile is required")
	}

	seen := make(map[string]bool, len(catalog.Tiles))
	total := 0
	for i, tile := range catalog.Tiles {
		if tile.ID == "" {
			return fmt.Errorf("catalog validation: tile %d has no id", i+1)
		}
		if seen[tile.ID] {
			return fmt.Errorf("catalog validation: duplicate tile id %q", tile.ID)
		}
		seen[tile.ID] = true

		if tile.Count < 0 {
			return fmt.Errorf("catalog validation: tile %q has negative count %d", tile.ID, tile.Count)
		}
		total += tile.Count

		if len(tile.Land) != n {
			return fmt.Errorf("catalog validation: tile %q must have %d land rows, got %d", tile.ID, n, len(tile.Land))
		}
		for r, row := range tile.Land {
			if len(row) != n {
				return fmt.Errorf("catalog validation: tile %q row %d must have %d cells, got %d", tile.ID, r+1, n, len(row))
			}
			for c, land := range row {
				if land == "" {
					return fmt.Errorf("catalog validation: tile %q has empty land type at row %d, col %d", tile.ID, r+1, c+1)
				}
			}
		}
	}
	if total == 0 {
		return fmt.Errorf("catalog validation: deck would be empty, every tile count is 0")
	}
	return nil
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(filename string) (*TileCatalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var catalog TileCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if err := ValidateCatalog(&catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Tile looks up a tile kind by id.
func (tc *TileCatalog) Tile(id string) (*TileSpec, bool) {
	tc.indexOnce.Do(func() {
		tc.byID = make(map[string]*TileSpec, len(tc.Tiles))
		for i := range tc.Tiles {
			tc.byID[tc.Tiles[i].ID] = &tc.Tiles[i]
		}
	})
	spec, ok := tc.byID[id]
	return spec, ok
}

// DeckEntries implements DeckSource.
func (tc *TileCatalog) DeckEntries() []TileSpec {
	return tc.Tiles
}

// EdgeLandType returns the land type at the center cell of the given edge of a
// tile turned by rotation. Only that representative cell is compared, not the
// whole edge run.
func (tc *TileCatalog) EdgeLandType(tileID string, rotation Rotation, edge Edge) (string, error) {
	spec, ok := tc.Tile(tileID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTile, tileID)
	}

	n := len(spec.Land)
	x, y := edgeCenter(edge, n)
	// Map the rotated-frame coordinate back to the stored grid.
	ox, oy := RotatePoint(x, y, n, inverse(rotation))
	return spec.Land[oy][ox], nil
}

// edgeCenter returns (x, y) = (col, row) of the middle cell of an edge.
func edgeCenter(edge Edge, n int) (int, int) {
	mid := (n - 1) / 2
	switch edge {
	case Top:
		return mid, 0
	case Right:
		return n - 1, mid
	case Bottom:
		return mid, n - 1
	default:
		return 0, mid
	}
}

// RotatePoint moves (x, y) inside an n×n grid by a clockwise rotation.
func RotatePoint(x, y, n int, rotation Rotation) (int, int) {
	switch normalize(rotation) {
	case Rotate90:
		return n - 1 - y, x
	case Rotate180:
		return n - 1 - x, n - 1 - y
	case Rotate270:
		return y, n - 1 - x
	default:
		return x, y
	}
}

func normalize(r Rotation) Rotation {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r
}

func inverse(r Rotation) Rotation {
	return normalize(360 - normalize(r))
}

// DefaultCatalog returns the built-in tile set used when no catalog files exist.
func DefaultCatalog() *TileCatalog {
	f, r, c := "field", "road", "city"
	return &TileCatalog{
		Name:         "default",
		Description:  "Built-in tile set with fields, roads and cities",
		Subdivisions: 3,
		Tiles: []TileSpec{
			{ID: "field", Image: "tiles/field.png", Count: 8, Land: [][]string{
				{f, f, f},
				{f, f, f},
				{f, f, f},
			}},
			{ID: "road-straight", Image: "tiles/road-straight.png", Count: 8, Land: [][]string{
				{f, r, f},
				{f, r, f},
				{f, r, f},
			}},
			{ID: "road-curve", Image: "tiles/road-curve.png", Count: 9, Land: [][]string{
				{f, f, f},
				{f, r, r},
				{f, r, f},
			}},
			{ID: "crossroads", Image: "tiles/crossroads.png", Count: 4, Land: [][]string{
				{f, r, f},
				{r, r, r},
				{f, r, f},
			}},
			{ID: "city-cap", Image: "tiles/city-cap.png", Count: 5, Land: [][]string{
				{c, c, c},
				{f, f, f},
				{f, f, f},
			}},
			{ID: "city-road", Image: "tiles/city-road.png", Count: 4, Land: [][]string{
				{c, c, c},
				{f, r, f},
				{f, r, f},
			}},
			{ID: "city-corner", Image: "tiles/city-corner.png", Count: 3, Land: [][]string{
				{c, c, c},
				{c, c, f},
				{c, f, f},
			}},
		},
	}
}

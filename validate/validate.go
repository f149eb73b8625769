// Command validate checks the tile catalog JSON files in the ../configs
// directory (or the directory given as the first argument). It checks:
//   - JSON structure and required fields
//   - An odd subdivision count and a square land grid per tile
//   - Unique tile ids and non-negative counts
//   - A deck with at least one tile
//   - Edge matching: every single-copy tile shares an edge land type with
//     another tile kind in the deck, so it can ever be placed next to one
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/carcacity/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateCatalog loads and validates a single catalog JSON file. Unlike
// engine.ValidateCatalog it keeps going after the first problem so a file
// can be fixed in one pass.
func validateCatalog(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var catalog engine.TileCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if catalog.Name == "" {
		result.fail("name is required")
	}

	n := catalog.Subdivisions
	if n < 1 || n%2 == 0 {
		result.fail("subdivisions must be a positive odd number, got %d", n)
	}

	if len(catalog.Tiles) == 0 {
		result.fail("At least one tile is required")
		return result
	}

	seen := make(map[string]bool)
	landTypes := make(map[string]int)
	deckSize := 0
	for i, tile := range catalog.Tiles {
		label := tile.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			result.fail("Tile %d has no id", i+1)
		} else if seen[tile.ID] {
			result.fail("Duplicate tile id %q", tile.ID)
		}
		seen[tile.ID] = true

		if tile.Count < 0 {
			result.fail("Tile %s has negative count %d", label, tile.Count)
		} else {
			deckSize += tile.Count
		}

		if len(tile.Land) != n {
			result.fail("Tile %s must have %d land rows, got %d", label, n, len(tile.Land))
		}
		for r, row := range tile.Land {
			if len(row) != n {
				result.fail("Tile %s row %d must have %d cells, got %d", label, r+1, n, len(row))
			}
			for c, land := range row {
				if land == "" {
					result.fail("Tile %s has empty land type at [%d,%d]", label, r+1, c+1)
					continue
				}
				landTypes[land]++
			}
		}
	}

	if deckSize == 0 {
		result.fail("Deck would be empty: every tile count is 0")
	}

	// Edge checks need well-formed grids.
	if result.Valid {
		matching := validateEdgeMatching(&catalog)
		if !matching.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, matching.Errors...)
	}

	if result.Valid {
		if err := engine.ValidateCatalog(&catalog); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid {
		types := make([]string, 0, len(landTypes))
		for land := range landTypes {
			types = append(types, land)
		}
		sort.Strings(types)

		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", catalog.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Subdivisions: %dx%d", n, n))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Tile kinds: %d", len(catalog.Tiles)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Deck size: %d", deckSize))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Land types: %s", strings.Join(types, ", ")))
	}

	return result
}

// edgeLandTypes returns the set of land types found on any edge center of a
// tile, across every rotation.
func edgeLandTypes(catalog *engine.TileCatalog, tileID string) map[string]bool {
	types := make(map[string]bool)
	for _, edge := range []engine.Edge{engine.Top, engine.Right, engine.Bottom, engine.Left} {
		land, err := catalog.EdgeLandType(tileID, engine.Rotate0, edge)
		if err != nil {
			continue
		}
		types[land] = true
	}
	return types
}

// validateEdgeMatching makes sure no tile in the deck is an island. A tile kind
// with a single copy needs another kind in the deck sharing at least one edge
// land type, otherwise it can only ever sit next to the board center.
func validateEdgeMatching(catalog *engine.TileCatalog) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	var deck []engine.TileSpec
	for _, tile := range catalog.Tiles {
		if tile.Count > 0 {
			deck = append(deck, tile)
		}
	}

	edges := make(map[string]map[string]bool, len(deck))
	for _, tile := range deck {
		edges[tile.ID] = edgeLandTypes(catalog, tile.ID)
	}

	var isolated []string
	for _, tile := range deck {
		if tile.Count > 1 {
			continue
		}
		matched := false
		for _, other := range deck {
			if other.ID == tile.ID {
				continue
			}
			for land := range edges[tile.ID] {
				if edges[other.ID][land] {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			isolated = append(isolated, tile.ID)
		}
	}

	if len(isolated) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Edge matching failure: %d/%d tile kinds share no edge with the rest of the deck", len(isolated), len(deck)))
		for _, id := range isolated {
			result.Errors = append(result.Errors, fmt.Sprintf("Isolated: %s", id))
		}
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Edge matching: all %d tile kinds can meet another tile", len(deck)))
	}

	return result
}

// main scans the configs directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding catalog files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No catalog files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateCatalog(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All catalogs are valid!")
	} else {
		fmt.Println("❌ Some catalogs have errors")
		os.Exit(1)
	}
}

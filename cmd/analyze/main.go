// Command analyze prints quick, human-readable heuristics about the tile
// catalogs in the project's configs directory. It summarizes deck size, the
// land types found on tile edges, how many distinct orientations each tile
// has, and highlights tiles that rarely match a random neighbour.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/carcacity/game/engine"
)

// hardToPlace is the match chance below which a tile is flagged.
const hardToPlace = 0.25

// TileAnalysis holds the heuristics for one tile kind.
type TileAnalysis struct {
	ID           string
	Count        int
	Orientations int
	MatchChance  float64
}

// CatalogAnalysis is the summary printed for a catalog.
type CatalogAnalysis struct {
	Name         string
	Subdivisions int
	DeckSize     int
	EdgeLand     map[string]float64
	Tiles        []TileAnalysis
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error listing catalogs: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeFile(file)
	}
}

func analyzeFile(path string) {
	catalog, err := engine.LoadCatalog(path)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		return
	}
	printAnalysis(analyzeCatalog(catalog))
}

// edges returns the four edge land types of a tile turned by rotation, in
// top, right, bottom, left order.
func edges(catalog *engine.TileCatalog, id string, rotation engine.Rotation) [4]string {
	var out [4]string
	for i, edge := range []engine.Edge{engine.Top, engine.Right, engine.Bottom, engine.Left} {
		out[i], _ = catalog.EdgeLandType(id, rotation, edge)
	}
	return out
}

func analyzeCatalog(catalog *engine.TileCatalog) CatalogAnalysis {
	a := CatalogAnalysis{
		Name:         catalog.Name,
		Subdivisions: catalog.Subdivisions,
		EdgeLand:     make(map[string]float64),
	}

	// Edge land distribution over the whole deck, weighted by count.
	totalEdges := 0
	for _, tile := range catalog.Tiles {
		a.DeckSize += tile.Count
		for _, land := range edges(catalog, tile.ID, engine.Rotate0) {
			a.EdgeLand[land] += float64(tile.Count)
			totalEdges += tile.Count
		}
	}
	if totalEdges > 0 {
		for land := range a.EdgeLand {
			a.EdgeLand[land] /= float64(totalEdges)
		}
	}

	for _, tile := range catalog.Tiles {
		seen := make(map[[4]string]bool)
		for _, rotation := range engine.Rotations {
			seen[edges(catalog, tile.ID, rotation)] = true
		}

		// Chance that one edge matches a random edge drawn from the deck.
		chance := 0.0
		for _, land := range edges(catalog, tile.ID, engine.Rotate0) {
			chance += a.EdgeLand[land]
		}
		chance /= 4

		a.Tiles = append(a.Tiles, TileAnalysis{
			ID:           tile.ID,
			Count:        tile.Count,
			Orientations: len(seen),
			MatchChance:  chance,
		})
	}
	return a
}

func printAnalysis(a CatalogAnalysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Tile grid: %dx%d\n", a.Subdivisions, a.Subdivisions)
	fmt.Printf("Tile kinds: %d, deck size: %d\n", len(a.Tiles), a.DeckSize)

	lands := make([]string, 0, len(a.EdgeLand))
	for land := range a.EdgeLand {
		lands = append(lands, land)
	}
	sort.Strings(lands)
	fmt.Println("Edge land types:")
	for _, land := range lands {
		fmt.Printf("  %-10s %5.1f%%\n", land, a.EdgeLand[land]*100)
	}

	fmt.Println("Tiles:")
	var hard []string
	for _, t := range a.Tiles {
		fmt.Printf("  %-16s x%-3d orientations=%d match=%.2f\n", t.ID, t.Count, t.Orientations, t.MatchChance)
		if t.Count > 0 && t.MatchChance < hardToPlace {
			hard = append(hard, t.ID)
		}
	}

	if len(hard) > 0 {
		fmt.Printf("⚠️  Hard to place: %v\n", hard)
	} else {
		fmt.Println("✓ Every tile matches a random neighbour often enough")
	}
}

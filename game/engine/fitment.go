package engine

import (
	"errors"
	"log"
)

// edgeOffsets gives the neighbour direction for each edge, indexed by Edge.
var edgeOffsets = [4]Position{
	Top:    {Row: -1, Col: 0},
	Right:  {Row: 0, Col: 1},
	Bottom: {Row: 1, Col: 0},
	Left:   {Row: 0, Col: -1},
}

// ComputeFitments reports, for each entry of Rotations, whether tileID placed at
// (row, col) in that orientation matches every already placed neighbour. An edge
// with no tiled neighbour is unconstrained. Catalog misses (ErrUnknownTile) also
// leave the edge unconstrained; a miss on the candidate tile itself makes every
// rotation legal.
func ComputeFitments(board *Board, catalog LandTypeCatalog, tileID string, row, col int) [4]bool {
	all := [4]bool{true, true, true, true}
	if catalog == nil || tileID == "" {
		return all
	}

	var required [4]*string
	for edge := Top; edge <= Left; edge++ {
		off := edgeOffsets[edge]
		neighbor := board.Cell(row+off.Row, col+off.Col)
		if neighbor == nil || neighbor.TileID == "" {
			continue
		}
		land, err := catalog.EdgeLandType(neighbor.TileID, neighbor.Rotation, edge.Opposite())
		if err != nil {
			logCatalogMiss(err)
			continue
		}
		required[edge] = &land
	}

	var fits [4]bool
	for i, rotation := range Rotations {
		fits[i] = true
		for edge := Top; edge <= Left; edge++ {
			if required[edge] == nil {
				continue
			}
			land, err := catalog.EdgeLandType(tileID, rotation, edge)
			if err != nil {
				logCatalogMiss(err)
				return all
			}
			if land != *required[edge] {
				fits[i] = false
				break
			}
		}
	}
	return fits
}

// AnyFit reports whether at least one rotation is legal.
func AnyFit(fits [4]bool) bool {
	return fits[0] || fits[1] || fits[2] || fits[3]
}

// FirstFit returns the first legal rotation.
func FirstFit(fits [4]bool) (Rotation, bool) {
	for i, ok := range fits {
		if ok {
			return Rotations[i], true
		}
	}
	return Rotate0, false
}

// rotationIndex maps a rotation onto its fitment vector slot.
func rotationIndex(r Rotation) int {
	return int(normalize(r) / 90)
}

func logCatalogMiss(err error) {
	if errors.Is(err, ErrUnknownTile) {
		log.Printf("[FITMENT] %v, treating edge as unconstrained", err)
		return
	}
	log.Printf("[FITMENT] edge lookup failed: %v", err)
}

package engine

import "sort"

// FrontierEntry is one legal move location.
type FrontierEntry struct {
	Row  int `json:"row"`
	Col  int `json:"col"`
	Rank int `json:"rank"`
}

// FrontierSet maps coordinates to their rank. A coordinate is present exactly
// when the matching board cell has Enabled set; only the session's enable and
// disable helpers mutate either side.
type FrontierSet struct {
	ranks map[Position]int
}

// NewFrontierSet returns an empty set.
func NewFrontierSet() *FrontierSet {
	return &FrontierSet{ranks: make(map[Position]int)}
}

// Len returns the number of frontier cells.
func (f *FrontierSet) Len() int {
	return len(f.ranks)
}

// Contains reports membership.
func (f *FrontierSet) Contains(row, col int) bool {
	_, ok := f.ranks[Position{Row: row, Col: col}]
	return ok
}

// Entries returns the frontier sorted by row then column.
func (f *FrontierSet) Entries() []FrontierEntry {
	out := make([]FrontierEntry, 0, len(f.ranks))
	for pos, rank := range f.ranks {
		out = append(out, FrontierEntry{Row: pos.Row, Col: pos.Col, Rank: rank})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

func (f *FrontierSet) add(pos Position) {
	f.ranks[pos] = 0
}

func (f *FrontierSet) remove(pos Position) {
	delete(f.ranks, pos)
}

func (f *FrontierSet) setRank(pos Position, rank int) {
	if _, ok := f.ranks[pos]; ok {
		f.ranks[pos] = rank
	}
}

// EnableIfEligible adds (row, col) to the frontier when the cell is in bounds,
// unoccupied and not already enabled.
func (g *GameSession) EnableIfEligible(row, col int) bool {
	cell := g.Board.Cell(row, col)
	if cell == nil || cell.Occupied() || cell.Enabled {
		return false
	}
	cell.Enabled = true
	g.Frontier.add(Position{Row: row, Col: col})
	return true
}

// DisableIfPresent removes (row, col) from the frontier. Cells that are not
// frontier members are left alone.
func (g *GameSession) DisableIfPresent(row, col int) bool {
	pos := Position{Row: row, Col: col}
	if !g.Frontier.Contains(row, col) {
		return false
	}
	g.Frontier.remove(pos)
	if cell := g.Board.Cell(row, col); cell != nil {
		cell.Enabled = false
	}
	return true
}

// RefreshNeighborOccupancyCount recomputes Count on an occupied cell: the number
// of cells in its 3×3 block held by the same occupant.
func (g *GameSession) RefreshNeighborOccupancyCount(row, col int) {
	cell := g.Board.Cell(row, col)
	if cell == nil || cell.Sequence == nil {
		return
	}
	cell.Count = g.Board.CountAround(row, col, cell.Player)
}

// rankFrontier recomputes every frontier rank for the given player.
func (g *GameSession) rankFrontier(player PlayerID) {
	for _, entry := range g.Frontier.Entries() {
		rank := g.Board.CountAround(entry.Row, entry.Col, player)
		g.Frontier.setRank(Position{Row: entry.Row, Col: entry.Col}, rank)
		g.Board.Cells[entry.Row][entry.Col].Rank = intPtr(rank)
	}
}

// afterPlacement runs the frontier pass around a freshly placed cell.
func (g *GameSession) afterPlacement(row, col int) {
	g.EnableIfEligible(row+1, col)
	g.EnableIfEligible(row-1, col)
	g.EnableIfEligible(row, col+1)
	g.EnableIfEligible(row, col-1)

	g.RefreshNeighborOccupancyCount(row, col)
	g.RefreshNeighborOccupancyCount(row+1, col+1)
	g.RefreshNeighborOccupancyCount(row+1, col-1)
	g.RefreshNeighborOccupancyCount(row-1, col+1)
	g.RefreshNeighborOccupancyCount(row-1, col-1)

	g.DisableIfPresent(row, col)
}

// rederiveFrontier offers every empty cell next to an occupied one to the
// frontier. Cells dropped by a previous fitment narrowing come back here.
func (g *GameSession) rederiveFrontier() {
	for r := 0; r < g.Board.Size; r++ {
		for c := 0; c < g.Board.Size; c++ {
			if !g.Board.Cells[r][c].Occupied() {
				continue
			}
			g.EnableIfEligible(r+1, c)
			g.EnableIfEligible(r-1, c)
			g.EnableIfEligible(r, c+1)
			g.EnableIfEligible(r, c-1)
		}
	}
}

// clearFrontier disables every frontier cell.
func (g *GameSession) clearFrontier() {
	for _, entry := range g.Frontier.Entries() {
		g.DisableIfPresent(entry.Row, entry.Col)
	}
}

// FrontierConsistent reports whether the board flags and the frontier set agree.
func (g *GameSession) FrontierConsistent() bool {
	enabled := 0
	for r := 0; r < g.Board.Size; r++ {
		for c := 0; c < g.Board.Size; c++ {
			if g.Board.Cells[r][c].Enabled {
				enabled++
				if !g.Frontier.Contains(r, c) {
					return false
				}
			}
		}
	}
	return enabled == g.Frontier.Len()
}

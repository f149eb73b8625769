package engine

import (
	"errors"
	"fmt"
)

var ErrInvalidBoardSize = errors.New("invalid board size")

// Board is an N×N grid with N odd so that it has a unique center.
type Board struct {
	Size  int      `json:"size"`
	Cells [][]Cell `json:"cells"`
}

// ValidateBoardSize checks that size is odd and within bounds.
func ValidateBoardSize(size int) error {
	if size < MinBoardSize || size > MaxBoardSize {
		return fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidBoardSize, MinBoardSize, MaxBoardSize, size)
	}
	if size%2 == 0 {
		return fmt.Errorf("%w: must be odd, got %d", ErrInvalidBoardSize, size)
	}
	return nil
}

// NewBoard builds an empty grid with the sentinel on the center cell.
func NewBoard(size int) (*Board, error) {
	if err := ValidateBoardSize(size); err != nil {
		return nil, err
	}

	cells := make([][]Cell, size)
	for i := range cells {
		cells[i] = make([]Cell, size)
	}

	b := &Board{Size: size, Cells: cells}
	center := b.Center()
	b.Cells[center.Row][center.Col] = Cell{Player: BoardOccupant, Index: intPtr(-1)}
	return b, nil
}

// Center returns the coordinate of the sentinel cell.
func (b *Board) Center() Position {
	mid := (b.Size - 1) / 2
	return Position{Row: mid, Col: mid}
}

// InBounds reports whether (row, col) lies on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.Size && col >= 0 && col < b.Size
}

// Cell returns a pointer to the cell at (row, col), or nil when out of bounds.
func (b *Board) Cell(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return &b.Cells[row][col]
}

// PlaceTile writes a placement onto the cell. Callers must have checked that the
// cell is in bounds, empty and on the frontier; the board does not re-validate.
// The sequence counter is read then incremented.
func (b *Board) PlaceTile(row, col int, occupant PlayerID, index int, color string, draw *TileDraw, rotation Rotation, sequence *int) *Cell {
	cell := &b.Cells[row][col]
	*cell = Cell{
		Player:   occupant,
		Index:    intPtr(index),
		Enabled:  cell.Enabled,
		Sequence: intPtr(*sequence),
		Rotation: rotation,
		Color:    color,
		Count:    0,
	}
	if draw != nil {
		cell.TileID = draw.TileID
		cell.Image = draw.Image
	}
	*sequence++
	return cell
}

// CountAround counts cells in the 3×3 block around (row, col) whose occupant is
// player. The center cell counts only if it also matches.
func (b *Board) CountAround(row, col int, player PlayerID) int {
	count := 0
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if b.InBounds(r, c) && b.Cells[r][c].Player == player {
				count++
			}
		}
	}
	return count
}

// Clone returns a deep copy of the board, safe to hand to other goroutines.
func (b *Board) Clone() *Board {
	cells := make([][]Cell, b.Size)
	for r := range b.Cells {
		cells[r] = make([]Cell, b.Size)
		for c, cell := range b.Cells[r] {
			cells[r][c] = cloneCell(cell)
		}
	}
	return &Board{Size: b.Size, Cells: cells}
}

func cloneCell(c Cell) Cell {
	out := c
	if c.Index != nil {
		out.Index = intPtr(*c.Index)
	}
	if c.Sequence != nil {
		out.Sequence = intPtr(*c.Sequence)
	}
	if c.Rank != nil {
		out.Rank = intPtr(*c.Rank)
	}
	return out
}

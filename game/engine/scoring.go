package engine

// neighbors8 lists the Moore neighbourhood offsets.
var neighbors8 = [8]Position{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// ComputeGroupSizes returns, per player, the size of that player's largest
// 8-connected group. The sentinel is never counted.
func ComputeGroupSizes(board *Board) map[PlayerID]int {
	sizes := make(map[PlayerID]int)
	visited := make([][]bool, board.Size)
	for i := range visited {
		visited[i] = make([]bool, board.Size)
	}

	stack := make([]Position, 0, board.Size)
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			owner := board.Cells[r][c].Player
			if visited[r][c] || owner == "" || owner == BoardOccupant {
				continue
			}

			size := 0
			visited[r][c] = true
			stack = append(stack[:0], Position{Row: r, Col: c})
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				size++

				for _, d := range neighbors8 {
					nr, nc := p.Row+d.Row, p.Col+d.Col
					if !board.InBounds(nr, nc) || visited[nr][nc] || board.Cells[nr][nc].Player != owner {
						continue
					}
					visited[nr][nc] = true
					stack = append(stack, Position{Row: nr, Col: nc})
				}
			}

			if size > sizes[owner] {
				sizes[owner] = size
			}
		}
	}
	return sizes
}

package engine

import "testing"

func own(board *Board, player PlayerID, cells ...Position) {
	for _, p := range cells {
		board.Cells[p.Row][p.Col].Player = player
		board.Cells[p.Row][p.Col].Sequence = intPtr(0)
	}
}

func TestComputeGroupSizes_LargestGroupOnly(t *testing.T) {
	board, _ := NewBoard(7)
	own(board, "A", Position{0, 0}, Position{1, 1}, Position{2, 2}, Position{6, 0})

	sizes := ComputeGroupSizes(board)
	if sizes["A"] != 3 {
		t.Errorf("expected A to score 3, got %d", sizes["A"])
	}
}

func TestComputeGroupSizes_SentinelIgnored(t *testing.T) {
	board, _ := NewBoard(5)
	// An arc over the sentinel and a lone cell touching it.
	own(board, "A", Position{1, 1}, Position{1, 2}, Position{1, 3}, Position{2, 3})
	own(board, "B", Position{3, 1})

	sizes := ComputeGroupSizes(board)
	if _, ok := sizes[BoardOccupant]; ok {
		t.Error("sentinel must not score")
	}
	if sizes["A"] != 4 {
		t.Errorf("expected A=4, got %d", sizes["A"])
	}
	if sizes["B"] != 1 {
		t.Errorf("expected B=1, got %d", sizes["B"])
	}
}

func TestComputeGroupSizes_PlayersDoNotMerge(t *testing.T) {
	board, _ := NewBoard(5)
	own(board, "A", Position{0, 0}, Position{0, 2})
	own(board, "B", Position{0, 1})

	sizes := ComputeGroupSizes(board)
	if sizes["A"] != 1 || sizes["B"] != 1 {
		t.Errorf("expected 1/1, got A=%d B=%d", sizes["A"], sizes["B"])
	}
}

func TestComputeGroupSizes_EmptyBoard(t *testing.T) {
	board, _ := NewBoard(3)
	if sizes := ComputeGroupSizes(board); len(sizes) != 0 {
		t.Errorf("expected no scores, got %v", sizes)
	}
}

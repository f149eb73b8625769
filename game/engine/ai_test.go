package engine

import "testing"

func TestDecide(t *testing.T) {
	tests := []struct {
		difficulty int
		roll       float64
		want       Decision
	}{
		{3, 0.99, DecisionBest},
		{2, 0.10, DecisionBest},
		{2, 0.75, DecisionMiddle},
		{2, 0.92, DecisionRandom},
		{2, 0.97, DecisionWorst},
		{1, 0.01, DecisionBest},
		{1, 0.30, DecisionWorst},
		{1, 0.60, DecisionMiddle},
		{1, 0.80, DecisionRandom},
		{0, 0.01, DecisionRandom},
	}
	for _, tt := range tests {
		if got := Decide(tt.difficulty, tt.roll); got != tt.want {
			t.Errorf("Decide(%d, %.2f) = %s, want %s", tt.difficulty, tt.roll, got, tt.want)
		}
	}
}

func TestSelectMove_BestAlwaysTopRank(t *testing.T) {
	entries := []FrontierEntry{
		{Row: 0, Col: 0, Rank: 2},
		{Row: 0, Col: 1, Rank: 5},
		{Row: 1, Col: 0, Rank: 1},
		{Row: 1, Col: 1, Rank: 5},
	}
	rng := newTestRand()
	seen := make(map[Position]bool)
	for i := 0; i < 200; i++ {
		move, ok := SelectMove(entries, 3, rng)
		if !ok {
			t.Fatal("expected a move")
		}
		if move.Rank != 5 {
			t.Fatalf("difficulty 3 picked rank %d", move.Rank)
		}
		seen[Position{move.Row, move.Col}] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both rank-5 cells to be picked over 200 draws, got %v", seen)
	}
}

func TestSelectMove_EmptyFrontier(t *testing.T) {
	if _, ok := SelectMove(nil, 3, newTestRand()); ok {
		t.Error("expected no move on empty frontier")
	}
}

func TestSelectMove_RandomStaysOnFrontier(t *testing.T) {
	entries := []FrontierEntry{{Row: 2, Col: 3, Rank: 1}, {Row: 4, Col: 4, Rank: 1}}
	rng := newTestRand()
	for i := 0; i < 50; i++ {
		move, _ := SelectMove(entries, 0, rng)
		if move != entries[0] && move != entries[1] {
			t.Fatalf("picked a cell outside the frontier: %+v", move)
		}
	}
}

func TestSelectMove_DoesNotReorderInput(t *testing.T) {
	entries := []FrontierEntry{{Row: 0, Col: 0, Rank: 1}, {Row: 0, Col: 1, Rank: 9}}
	SelectMove(entries, 3, newTestRand())
	if entries[0].Rank != 1 {
		t.Error("SelectMove sorted the caller's slice")
	}
}

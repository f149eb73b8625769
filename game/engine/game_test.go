package engine

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

type recordingSink struct {
	boards   int
	turns    []TurnInfo
	players  [][]Player
	statuses []GameStatus
}

func (s *recordingSink) EmitBoard(*Board)             { s.boards++ }
func (s *recordingSink) EmitTurn(t TurnInfo)          { s.turns = append(s.turns, t) }
func (s *recordingSink) EmitPlayers(p []Player)       { s.players = append(s.players, p) }
func (s *recordingSink) EmitGameStatus(st GameStatus) { s.statuses = append(s.statuses, st) }

func newTiledSession(t *testing.T, size int) *GameSession {
	t.Helper()
	g, err := NewGameSession(Options{BoardSize: size, Catalog: DefaultCatalog(), Rand: newTestRand()})
	if err != nil {
		t.Fatalf("NewGameSession failed: %v", err)
	}
	return g
}

func mustAdd(t *testing.T, g *GameSession, ids ...PlayerID) {
	t.Helper()
	for _, id := range ids {
		if _, err := g.AddPlayer(id, string(id)); err != nil {
			t.Fatalf("AddPlayer(%s) failed: %v", id, err)
		}
	}
}

// playFirst places on the first frontier cell for whoever holds the turn.
func playFirst(t *testing.T, g *GameSession) PlayerID {
	t.Helper()
	entries := g.Frontier.Entries()
	if len(entries) == 0 {
		t.Fatal("frontier is empty")
	}
	player := g.Players[g.TurnIndex].ID
	if !g.PlaceTurn(entries[0].Row, entries[0].Col, player, g.TurnIndex) {
		t.Fatalf("placement at (%d,%d) by %s rejected", entries[0].Row, entries[0].Col, player)
	}
	return player
}

func TestStart_EnablesCenterNeighbours(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "p1")

	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !g.Started || g.Ended {
		t.Errorf("expected started and not ended, got %+v", g.Status())
	}
	if g.TurnIndex != 0 || g.LastTurnIndex != -1 {
		t.Errorf("expected turn 0 after -1, got %d after %d", g.TurnIndex, g.LastTurnIndex)
	}
	if !g.Players[0].IsTurn {
		t.Error("first player should hold the turn")
	}
	for _, p := range []Position{{1, 2}, {3, 2}, {2, 1}, {2, 3}} {
		if !g.Frontier.Contains(p.Row, p.Col) {
			t.Errorf("expected (%d,%d) on the frontier", p.Row, p.Col)
		}
	}
	if g.Frontier.Len() != 4 {
		t.Errorf("expected 4 frontier cells, got %d", g.Frontier.Len())
	}
}

func TestStart_Errors(t *testing.T) {
	g := newClassicSession(t, 5)
	if err := g.Start(); !errors.Is(err, ErrNoPlayers) {
		t.Errorf("expected ErrNoPlayers, got %v", err)
	}

	mustAdd(t, g, "p1")
	g.Start()
	if err := g.Start(); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("expected ErrGameInProgress, got %v", err)
	}
}

func TestTurnOrder_RoundRobin(t *testing.T) {
	g := newClassicSession(t, 9)
	mustAdd(t, g, "P1", "P2", "P3")
	g.Start()

	var visited []PlayerID
	for i := 0; i < 3; i++ {
		visited = append(visited, playFirst(t, g))
	}
	want := []PlayerID{"P1", "P2", "P3"}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("move %d: got %s, want %s", i, visited[i], want[i])
		}
	}
	if g.TurnIndex != 0 || !g.Players[0].IsTurn {
		t.Errorf("expected turn to wrap to P1, got index %d", g.TurnIndex)
	}
	if g.Players[2].IsTurn {
		t.Error("previous player kept its turn flag")
	}
}

func TestCheckmate_FrontierEmpty(t *testing.T) {
	g := newClassicSession(t, 3)
	mustAdd(t, g, "p1", "p2")
	g.Start()

	moves := 0
	for g.Started {
		playFirst(t, g)
		moves++
		if moves > 8 {
			t.Fatal("game did not end after filling the board")
		}
	}

	if moves != 8 {
		t.Errorf("expected 8 moves on a 3x3 board, got %d", moves)
	}
	if !g.Ended || g.Started {
		t.Errorf("expected checkmate, got %+v", g.Status())
	}
	if g.Frontier.Len() != 0 {
		t.Errorf("expected empty frontier, got %d", g.Frontier.Len())
	}

	want := ComputeGroupSizes(g.Board)
	for _, p := range g.Players {
		if p.Score != want[p.ID] {
			t.Errorf("%s: score %d, want %d", p.ID, p.Score, want[p.ID])
		}
		if p.IsTurn {
			t.Errorf("%s still holds the turn", p.ID)
		}
	}
	if g.CurrentTurn().PlayerName != "NA" {
		t.Errorf("expected no current turn, got %s", g.CurrentTurn().PlayerName)
	}
}

func TestCheckmate_KeepsScores(t *testing.T) {
	g := newClassicSession(t, 3)
	mustAdd(t, g, "p1")
	g.Start()

	for g.Frontier.Len() > 1 {
		playFirst(t, g)
	}
	before := g.Players[0].Score
	playFirst(t, g)

	if !g.Ended {
		t.Fatal("expected checkmate after the last cell")
	}
	if g.Players[0].Score != 8 || before != 7 {
		t.Errorf("expected scores 7 then 8, got %d then %d", before, g.Players[0].Score)
	}
}

func TestCheckmate_DemotesDisconnectedRobots(t *testing.T) {
	g := newClassicSession(t, 3)
	mustAdd(t, g, "p1")
	g.Disconnect("p1")
	g.Robotify()
	g.Start()

	for i := 0; g.Started && i < 20; i++ {
		if !g.RobotStep() {
			t.Fatalf("robot step %d failed", i)
		}
	}
	if !g.Ended {
		t.Fatal("expected the robot to finish the game")
	}
	if g.Players[0].Robot {
		t.Error("disconnected robot should be demoted at checkmate")
	}
}

func TestPlaceTurn_RoundTrip(t *testing.T) {
	g := newTiledSession(t, 9)
	mustAdd(t, g, "p1", "p2")
	g.Start()

	upcoming := *g.Upcoming
	entries := g.Frontier.Entries()
	target := entries[0]
	fits := ComputeFitments(g.Board, g.catalog, upcoming.TileID, target.Row, target.Col)
	want, _ := FirstFit(fits)

	if !g.PlaceTurn(target.Row, target.Col, "p1", 0) {
		t.Fatal("placement rejected")
	}

	cell := g.Board.Cells[target.Row][target.Col]
	if cell.Player != "p1" || cell.TileID != upcoming.TileID || cell.Rotation != want {
		t.Errorf("unexpected cell: %+v", cell)
	}
	if cell.Sequence == nil || *cell.Sequence != 0 {
		t.Errorf("expected sequence 0, got %v", cell.Sequence)
	}
	if g.Frontier.Contains(target.Row, target.Col) {
		t.Error("placed cell is still on the frontier")
	}
	if g.Players[0].LastTile == nil || *g.Players[0].LastTile != (Position{target.Row, target.Col}) {
		t.Errorf("last tile not recorded: %+v", g.Players[0].LastTile)
	}
	if g.Players[0].Score != 1 {
		t.Errorf("expected score 1, got %d", g.Players[0].Score)
	}
	if g.TurnIndex != 1 {
		t.Errorf("expected turn to pass to p2, got %d", g.TurnIndex)
	}
	if !g.FrontierConsistent() {
		t.Error("frontier diverged from board flags")
	}
}

func TestPlaceTurn_IllegalMovesIgnored(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "p1", "p2")

	if g.PlaceTurn(1, 2, "p1", 0) {
		t.Error("placement before start accepted")
	}
	g.Start()

	tests := []struct {
		name   string
		row    int
		col    int
		player PlayerID
		index  int
	}{
		{"out of turn", 1, 2, "p2", 1},
		{"wrong index", 1, 2, "p1", 1},
		{"unknown player", 1, 2, "ghost", 0},
		{"sentinel", 2, 2, "p1", 0},
		{"not on frontier", 0, 0, "p1", 0},
		{"out of bounds", 5, 2, "p1", 0},
		{"negative", -1, 2, "p1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if g.PlaceTurn(tt.row, tt.col, tt.player, tt.index) {
				t.Error("illegal move accepted")
			}
			if g.Sequence != 0 || g.TurnIndex != 0 {
				t.Errorf("state changed: sequence %d, turn %d", g.Sequence, g.TurnIndex)
			}
		})
	}

	g.PlaceTurn(1, 2, "p1", 0)
	if g.PlaceTurn(1, 2, "p2", 1) {
		t.Error("placement on occupied cell accepted")
	}
}

func TestPlaceTurnRotated(t *testing.T) {
	g := newTiledSession(t, 7)
	mustAdd(t, g, "p1")
	g.Start()

	target := g.Frontier.Entries()[0]
	// Nothing but the sentinel touches the first ring, so every rotation fits.
	if g.PlaceTurnRotated(target.Row, target.Col, "p1", 0, 45) {
		t.Error("non-quarter rotation accepted")
	}
	if !g.PlaceTurnRotated(target.Row, target.Col, "p1", 0, Rotate270) {
		t.Fatal("legal rotation rejected")
	}
	if g.Board.Cells[target.Row][target.Col].Rotation != Rotate270 {
		t.Error("rotation not stored")
	}
}

func TestFullRobotGame_InvariantsHold(t *testing.T) {
	g := newTiledSession(t, 9)
	for i := 0; i < 3; i++ {
		if _, err := g.AddRobot(i + 1); err != nil {
			t.Fatalf("AddRobot failed: %v", err)
		}
	}
	g.Start()

	lastSeq := -1
	for steps := 0; g.Started; steps++ {
		if steps > 81 {
			t.Fatal("game did not terminate")
		}
		if !g.FrontierConsistent() {
			t.Fatalf("step %d: frontier diverged from board flags", steps)
		}
		for _, e := range g.Frontier.Entries() {
			if !AnyFit(g.Board.Cells[e.Row][e.Col].Fitments) {
				t.Fatalf("step %d: frontier cell (%d,%d) cannot take the upcoming tile", steps, e.Row, e.Col)
			}
		}
		if !g.RobotStep() {
			t.Fatalf("step %d: robot could not move", steps)
		}
		if g.Sequence <= lastSeq {
			t.Fatalf("sequence did not advance")
		}
		lastSeq = g.Sequence
	}

	if !g.Ended {
		t.Error("expected checkmate")
	}
	if !g.FrontierConsistent() || g.Frontier.Len() != 0 {
		t.Error("frontier not cleared at checkmate")
	}
	if g.Sequence+g.Discarded > 41 {
		t.Errorf("used more tiles than the deck holds: %d placed, %d discarded", g.Sequence, g.Discarded)
	}
}

func TestRobotStep_SkipsHumans(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "human")
	g.AddRobot(3)
	g.Start()

	if g.RobotStep() {
		t.Error("robot played on a human's turn")
	}
	playFirst(t, g)
	if !g.RobotStep() {
		t.Error("robot did not play on its turn")
	}
	if g.TurnIndex != 0 {
		t.Errorf("expected turn back to human, got %d", g.TurnIndex)
	}
}

func TestLobbyCapacity(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "a", "b", "c", "d", "e")

	if _, err := g.AddPlayer("f", ""); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("expected ErrLobbyFull, got %v", err)
	}
	if _, err := g.AddRobot(3); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("expected ErrLobbyFull for robot, got %v", err)
	}
	if _, err := g.AddPlayer("a", ""); !errors.Is(err, ErrPlayerExists) {
		t.Errorf("expected ErrPlayerExists, got %v", err)
	}

	g.RemovePlayer("e")
	g.Start()
	if _, err := g.AddPlayer("f", ""); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("expected ErrGameInProgress, got %v", err)
	}
}

func TestColoursAndRobotNames(t *testing.T) {
	g := newClassicSession(t, 5)
	r1, _ := g.AddRobot(7)
	r2, _ := g.AddRobot(-1)

	if r1.Name != "Robot 1" || r2.Name != "Robot 2" {
		t.Errorf("unexpected names %q %q", r1.Name, r2.Name)
	}
	if r1.Difficulty != MaxDifficulty || r2.Difficulty != 0 {
		t.Errorf("difficulty not clamped: %d %d", r1.Difficulty, r2.Difficulty)
	}
	if r1.Color != DefaultColors[0] || r2.Color != DefaultColors[1] {
		t.Errorf("unexpected colours %s %s", r1.Color, r2.Color)
	}
	if r1.ID == r2.ID {
		t.Error("robot ids collide")
	}

	if err := g.RemovePlayer(r1.ID); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	p, _ := g.AddPlayer("human", "")
	if p.Color != DefaultColors[2] {
		t.Errorf("expected next colour from the pool, got %s", p.Color)
	}
	if p.Name != "Player 2" {
		t.Errorf("expected default name, got %s", p.Name)
	}

	r3, _ := g.AddRobot(3)
	if r3.Name != "Robot 1" {
		t.Errorf("expected freed name Robot 1, got %s", r3.Name)
	}

	if err := g.RemovePlayer("ghost"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestRemovePlayer_MidGamePassesTurn(t *testing.T) {
	g := newClassicSession(t, 7)
	mustAdd(t, g, "a", "b", "c")
	g.Start()
	playFirst(t, g) // b to move

	g.RemovePlayer("b")
	if g.Players[g.TurnIndex].ID != "c" {
		t.Errorf("expected c to move, got %s", g.Players[g.TurnIndex].ID)
	}

	g.RemovePlayer("a")
	if g.Players[g.TurnIndex].ID != "c" || g.TurnIndex != 0 {
		t.Errorf("expected c at index 0, got %d", g.TurnIndex)
	}

	g.RemovePlayer("c")
	if !g.Ended {
		t.Error("expected game to end when the last player leaves")
	}
}

func TestDisconnectAndReconnect(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "a")
	g.Players[0].Score = 4

	g.Disconnect("a")
	if g.Players[0].Connected || g.ConnectedHumans() != 0 {
		t.Error("player still connected")
	}
	if !g.Reconnect("a") {
		t.Fatal("reconnect failed")
	}
	if g.Reconnect("a") {
		t.Error("reconnecting a connected player should report false")
	}
	if g.Players[0].Score != 4 || g.ConnectedHumans() != 1 {
		t.Error("reconnect lost state")
	}
}

func TestResetAndEnd(t *testing.T) {
	g := newClassicSession(t, 5)
	mustAdd(t, g, "a", "b")
	g.Start()
	playFirst(t, g)

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if g.Started || g.Ended || g.TurnIndex != -1 || g.Sequence != 0 {
		t.Errorf("unexpected state after reset: %+v turn=%d seq=%d", g.Status(), g.TurnIndex, g.Sequence)
	}
	if len(g.Players) != 2 || g.Players[0].Score != 1 {
		t.Error("reset should keep players and scores")
	}
	if g.Frontier.Len() != 0 {
		t.Error("reset should empty the frontier")
	}

	g.End()
	if g.Players[0].Score != 0 || g.Players[0].LastTile != nil {
		t.Error("end should clear scores and last tiles")
	}
}

func TestSetBoardSize(t *testing.T) {
	g := newClassicSession(t, 5)
	if err := g.SetBoardSize(11); err != nil {
		t.Fatalf("SetBoardSize failed: %v", err)
	}
	if g.Board.Size != 11 || g.Board.Cells[5][5].Player != BoardOccupant {
		t.Error("board not rebuilt")
	}
	if err := g.SetBoardSize(8); !errors.Is(err, ErrInvalidBoardSize) {
		t.Errorf("expected ErrInvalidBoardSize, got %v", err)
	}

	mustAdd(t, g, "a")
	g.Start()
	if err := g.SetBoardSize(7); !errors.Is(err, ErrGameInProgress) {
		t.Errorf("expected ErrGameInProgress, got %v", err)
	}
	if g.Board.Size != 11 {
		t.Error("rejected resize mutated the board")
	}
}

func TestBroadcastAfterPlacement(t *testing.T) {
	sink := &recordingSink{}
	g, _ := NewGameSession(Options{BoardSize: 5, Rand: newTestRand(), Sink: sink})
	mustAdd(t, g, "a", "b")
	g.Start()
	sink.turns = nil

	playFirst(t, g)
	if len(sink.turns) != 1 || sink.turns[0].PlayerName != "b" {
		t.Errorf("expected one turn emission for b, got %+v", sink.turns)
	}
	last := sink.statuses[len(sink.statuses)-1]
	if !last.Started || last.Ended {
		t.Errorf("unexpected status %+v", last)
	}
	if sink.boards == 0 {
		t.Error("board was not emitted")
	}
}

func TestTiledGame_DeckDrivesTurnInfo(t *testing.T) {
	g := newTiledSession(t, 9)
	mustAdd(t, g, "a")
	g.Start()

	turn := g.CurrentTurn()
	if turn.UpcomingTile == nil {
		t.Fatal("expected an upcoming tile")
	}
	if turn.DeckRemaining+1+g.Discarded != 41 {
		t.Errorf("deck accounting off: remaining %d, discarded %d", turn.DeckRemaining, g.Discarded)
	}
	if turn.PlayerName != "a" {
		t.Errorf("expected a to move, got %s", turn.PlayerName)
	}
}

// edgeCatalog has single-cell tiles, so every edge of a tile is its one land.
func edgeCatalog() *TileCatalog {
	return &TileCatalog{
		Name:         "edges",
		Subdivisions: 1,
		Tiles: []TileSpec{
			{ID: "field", Count: 1, Land: [][]string{{"field"}}},
			{ID: "city", Count: 1, Land: [][]string{{"city"}}},
		},
	}
}

// placeTiled puts a tile straight onto the board and runs the frontier pass.
func placeTiled(g *GameSession, row, col int, tileID string) {
	g.Board.PlaceTile(row, col, "a", 0, "", &TileDraw{TileID: tileID}, Rotate0, &g.Sequence)
	g.afterPlacement(row, col)
}

func newEdgeSession(t *testing.T) *GameSession {
	t.Helper()
	g, err := NewGameSession(Options{BoardSize: 3, Catalog: edgeCatalog(), Rand: newTestRand()})
	if err != nil {
		t.Fatalf("NewGameSession failed: %v", err)
	}
	mustAdd(t, g, "a", "b")
	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return g
}

func TestAdvanceTurn_DiscardsUnplayableTile(t *testing.T) {
	g := newEdgeSession(t)

	// Only the corners stay open. The city at (1,0) rules out the left corners
	// for a field, and the fields rule out a city everywhere.
	placeTiled(g, 0, 1, "field")
	placeTiled(g, 1, 0, "city")
	placeTiled(g, 1, 2, "field")
	placeTiled(g, 2, 1, "field")
	g.Discarded = 0
	g.Deck = &TileDeck{draws: []TileDraw{{TileID: "field"}, {TileID: "city"}}}

	g.advanceTurn()

	if g.Discarded != 1 {
		t.Errorf("expected the city to be discarded, discarded=%d", g.Discarded)
	}
	if g.Upcoming == nil || g.Upcoming.TileID != "field" {
		t.Fatalf("expected field to be upcoming, got %+v", g.Upcoming)
	}
	if g.Deck.Remaining() != 0 {
		t.Errorf("expected the deck to be drained, %d left", g.Deck.Remaining())
	}
	if !g.Started || g.Ended {
		t.Errorf("game should continue: started=%v ended=%v", g.Started, g.Ended)
	}

	entries := g.Frontier.Entries()
	if len(entries) != 2 || entries[0] != (FrontierEntry{Row: 0, Col: 2, Rank: entries[0].Rank}) ||
		entries[1] != (FrontierEntry{Row: 2, Col: 2, Rank: entries[1].Rank}) {
		t.Errorf("expected frontier narrowed to (0,2) and (2,2), got %+v", entries)
	}
	for _, pos := range []Position{{Row: 0, Col: 0}, {Row: 2, Col: 0}} {
		if g.Board.Cells[pos.Row][pos.Col].Enabled {
			t.Errorf("(%d,%d) should be disabled for the upcoming field", pos.Row, pos.Col)
		}
	}
	if fits := g.Board.Cells[0][2].Fitments; !AnyFit(fits) {
		t.Errorf("(0,2) should fit the field, got %v", fits)
	}
	if !g.FrontierConsistent() {
		t.Error("frontier flags and set disagree")
	}
}

func TestAdvanceTurn_DiscardsExhaustDeck(t *testing.T) {
	g := newEdgeSession(t)

	placeTiled(g, 0, 1, "field")
	placeTiled(g, 1, 0, "field")
	placeTiled(g, 1, 2, "field")
	placeTiled(g, 2, 1, "field")
	g.Players[0].Score = 3
	g.Discarded = 0
	g.Deck = &TileDeck{draws: []TileDraw{{TileID: "city"}, {TileID: "city"}}}

	g.advanceTurn()

	if g.Discarded != 2 {
		t.Errorf("expected both cities discarded, discarded=%d", g.Discarded)
	}
	if g.Started || !g.Ended {
		t.Errorf("expected checkmate: started=%v ended=%v", g.Started, g.Ended)
	}
	if g.Upcoming != nil {
		t.Errorf("expected no upcoming tile, got %+v", g.Upcoming)
	}
	if g.Frontier.Len() != 0 || !g.FrontierConsistent() {
		t.Errorf("expected an empty, consistent frontier, got %d cells", g.Frontier.Len())
	}
	if g.Players[0].Score != 3 {
		t.Errorf("checkmate should keep scores, got %d", g.Players[0].Score)
	}
	for _, p := range g.Players {
		if p.IsTurn {
			t.Errorf("%s still holds the turn after checkmate", p.ID)
		}
	}
}

func TestRemovePlayer_CurrentTurnDiscardsUpcoming(t *testing.T) {
	g := newTiledSession(t, 9)
	mustAdd(t, g, "a", "b")
	g.Start()
	before := g.Discarded

	if err := g.RemovePlayer("a"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if g.Discarded < before+1 {
		t.Errorf("expected the leaver's tile to be discarded, discarded %d -> %d", before, g.Discarded)
	}
	if g.Upcoming == nil || g.Players[g.TurnIndex].ID != "b" {
		t.Fatalf("expected b to move with a fresh tile")
	}
	if g.Sequence+g.Discarded+g.Deck.Remaining()+1 != 41 {
		t.Errorf("deck accounting off: placed %d, discarded %d, remaining %d", g.Sequence, g.Discarded, g.Deck.Remaining())
	}

	g.RemovePlayer("b")
	if !g.Ended || g.Upcoming != nil {
		t.Fatal("expected the game to end without an upcoming tile")
	}
	if g.Sequence+g.Discarded+g.Deck.Remaining() != 41 {
		t.Errorf("deck accounting off after last leave: placed %d, discarded %d, remaining %d", g.Sequence, g.Discarded, g.Deck.Remaining())
	}
}

// Package engine holds the rules of a Carcacity game: a tile-laying territory
// game for up to five players, human or robot, on an odd-sized square board.
//
// A GameSession owns one Board, one TileDeck and one FrontierSet. The board
// starts with a sentinel tile on the center cell. Each turn the current player
// draws a tile and lays it on a frontier cell, an empty cell orthogonally next to
// an occupied one. When a tile catalog is configured, a tile may only go where
// at least one of its four rotations matches the land type on every neighbouring
// edge; tiles that fit nowhere are discarded. A player's score is the size of
// their largest 8-connected group. The game ends (checkmate) when the frontier
// or the deck runs out.
//
// Usage:
//
//	g, err := engine.NewGameSession(engine.Options{
//		BoardSize: 9,
//		Catalog:   engine.DefaultCatalog(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	g.AddPlayer("alice", "Alice")
//	g.AddRobot(3)
//	g.Start()
//
//	turn := g.CurrentTurn()
//	move := g.Frontier.Entries()[0]
//	g.PlaceTurn(move.Row, move.Col, "alice", turn.TurnIndex)
//
// The package does no locking. Every GameSession must be driven from one
// goroutine at a time.
package engine

package engine

// Broadcaster receives state after every change. Arguments are snapshots owned
// by the receiver; delivery order and reliability are the receiver's concern.
type Broadcaster interface {
	EmitBoard(board *Board)
	EmitTurn(turn TurnInfo)
	EmitPlayers(players []Player)
	EmitGameStatus(status GameStatus)
}

// NopBroadcaster drops everything.
type NopBroadcaster struct{}

func (NopBroadcaster) EmitBoard(*Board)          {}
func (NopBroadcaster) EmitTurn(TurnInfo)         {}
func (NopBroadcaster) EmitPlayers([]Player)      {}
func (NopBroadcaster) EmitGameStatus(GameStatus) {}

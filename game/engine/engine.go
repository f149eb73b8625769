package engine

// Engine is the set of operations a lobby drives a game through.
type Engine interface {
	// Seats
	AddPlayer(id PlayerID, name string) (*Player, error)
	AddRobot(difficulty int) (*Player, error)
	RemovePlayer(id PlayerID) error
	Disconnect(id PlayerID) error
	Reconnect(id PlayerID) bool
	Robotify()

	// Turn state machine
	Start() error
	PlaceTurn(row, col int, playerID PlayerID, index int) bool
	PlaceTurnRotated(row, col int, playerID PlayerID, index int, rotation Rotation) bool
	RobotStep() bool
	Reset() error
	End() error
	SetBoardSize(size int) error

	// Queries
	CurrentTurn() TurnInfo
	Status() GameStatus
	PlayerList() []Player
	Snapshot() *State
}

var _ Engine = (*GameSession)(nil)

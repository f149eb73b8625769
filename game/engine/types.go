package engine

// PlayerID identifies the occupant of a cell.
type PlayerID string

// BoardOccupant marks the pre-placed center cell. It never scores and is never
// part of the frontier.
const BoardOccupant PlayerID = "board"

// Rotation is a tile orientation in degrees, clockwise.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Rotations lists the four orientations in fitment vector order.
var Rotations = [4]Rotation{Rotate0, Rotate90, Rotate180, Rotate270}

// Edge is a side of a tile.
type Edge int

const (
	Top Edge = iota
	Right
	Bottom
	Left
)

// Opposite returns the facing edge of a neighbouring tile.
func (e Edge) Opposite() Edge {
	return (e + 2) % 4
}

func (e Edge) String() string {
	switch e {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	}
	return "unknown"
}

const (
	MinBoardSize     = 3
	MaxBoardSize     = 49
	DefaultBoardSize = 9
	MaxPlayers       = 5
	MaxDifficulty    = 3
)

// Position is a board coordinate.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Cell is a single board square.
type Cell struct {
	Player   PlayerID `json:"player,omitempty"`
	Index    *int     `json:"index"`
	Enabled  bool     `json:"enabled"`
	Sequence *int     `json:"sequence"`
	Rank     *int     `json:"rank"`
	TileID   string   `json:"tile_id,omitempty"`
	Image    string   `json:"image,omitempty"`
	Rotation Rotation `json:"rotation"`
	Color    string   `json:"color,omitempty"`
	Count    int      `json:"count"`
	Fitments [4]bool  `json:"fitments"`
}

// Occupied reports whether anything (a player or the sentinel) sits on the cell.
func (c *Cell) Occupied() bool {
	return c.Player != "" || c.Sequence != nil
}

// Player is a participant in a session. Slice order is turn order.
type Player struct {
	ID         PlayerID  `json:"client_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Robot      bool      `json:"robot"`
	Difficulty int       `json:"difficulty"`
	Score      int       `json:"score"`
	IsTurn     bool      `json:"is_turn"`
	LastTile   *Position `json:"last_tile,omitempty"`
	Connected  bool      `json:"connected"`
}

// TurnInfo is broadcast whenever the turn changes.
type TurnInfo struct {
	PlayerName    string    `json:"player_name"`
	TurnIndex     int       `json:"turn_index"`
	UpcomingTile  *TileDraw `json:"upcoming_tile,omitempty"`
	DeckRemaining int       `json:"deck_remaining"`
}

// GameStatus is the started/checkmate pair.
type GameStatus struct {
	Started bool `json:"started"`
	Ended   bool `json:"ended"`
}

func intPtr(v int) *int {
	return &v
}

package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

var (
	ErrLobbyFull      = errors.New("lobby is full")
	ErrGameInProgress = errors.New("game in progress")
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already joined")
	ErrNoPlayers      = errors.New("no players")
)

// DefaultColors is the player colour palette, handed out in order.
var DefaultColors = []string{"#3b9774", "#ff9671", "#845ec2", "#FFDB58", "#3498db"}

// Catalog is everything a session needs from a tile set.
type Catalog interface {
	LandTypeCatalog
	DeckSource
}

// Options configures a new GameSession. Zero values fall back to defaults; a nil
// Catalog selects the classic variant without tiles or fitment.
type Options struct {
	BoardSize  int
	MaxPlayers int
	Catalog    Catalog
	Colors     []string
	Rand       *rand.Rand
	Sink       Broadcaster
	NewID      func() string
}

// GameSession is one independent game: board, deck, frontier and players.
// It is not safe for concurrent use; callers serialise access.
type GameSession struct {
	Board         *Board
	Deck          *TileDeck
	Frontier      *FrontierSet
	Players       []*Player
	Sequence      int
	TurnIndex     int
	LastTurnIndex int
	Started       bool
	Ended         bool
	Upcoming      *TileDraw
	Discarded     int

	catalog    Catalog
	maxPlayers int
	colors     []string
	rng        *rand.Rand
	sink       Broadcaster
	newID      func() string
}

// NewGameSession builds a session in the NotStarted state.
func NewGameSession(opts Options) (*GameSession, error) {
	if opts.BoardSize == 0 {
		opts.BoardSize = DefaultBoardSize
	}
	if opts.MaxPlayers <= 0 || opts.MaxPlayers > MaxPlayers {
		opts.MaxPlayers = MaxPlayers
	}
	if len(opts.Colors) == 0 {
		opts.Colors = DefaultColors
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sink == nil {
		opts.Sink = NopBroadcaster{}
	}

	g := &GameSession{
		TurnIndex:     -1,
		LastTurnIndex: -1,
		catalog:       opts.Catalog,
		maxPlayers:    opts.MaxPlayers,
		colors:        append([]string(nil), opts.Colors...),
		rng:           opts.Rand,
		sink:          opts.Sink,
		newID:         opts.NewID,
	}
	if g.newID == nil {
		g.newID = func() string { return strconv.FormatInt(g.rng.Int63(), 16) }
	}
	if err := g.resetBoard(opts.BoardSize); err != nil {
		return nil, err
	}
	return g, nil
}

// SetSink replaces the broadcast sink.
func (g *GameSession) SetSink(sink Broadcaster) {
	if sink == nil {
		sink = NopBroadcaster{}
	}
	g.sink = sink
}

// HasCatalog reports whether the session plays with tiles and fitment.
func (g *GameSession) HasCatalog() bool {
	return g.catalog != nil
}

// resetBoard rebuilds the grid, reseeds and shuffles the deck and empties the
// frontier.
func (g *GameSession) resetBoard(size int) error {
	board, err := NewBoard(size)
	if err != nil {
		return err
	}
	g.Board = board
	g.Frontier = NewFrontierSet()
	g.Deck = NewTileDeck(g.catalog, g.rng)
	g.Sequence = 0
	g.Upcoming = nil
	g.Discarded = 0
	return nil
}

// Player returns the player with the given id.
func (g *GameSession) Player(id PlayerID) (*Player, int) {
	for i, p := range g.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// AddPlayer appends a human to the turn order.
func (g *GameSession) AddPlayer(id PlayerID, name string) (*Player, error) {
	if p, _ := g.Player(id); p != nil {
		return nil, fmt.Errorf("%w: %s", ErrPlayerExists, id)
	}
	if err := g.canJoin(); err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", len(g.Players)+1)
	}

	p := &Player{ID: id, Name: name, Color: g.takeColor(), Connected: true}
	g.Players = append(g.Players, p)
	g.emitPlayers()
	return p, nil
}

// AddRobot appends a robot named "Robot N" with the lowest free N.
func (g *GameSession) AddRobot(difficulty int) (*Player, error) {
	if err := g.canJoin(); err != nil {
		return nil, err
	}
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}

	n := g.nextRobotNumber()
	p := &Player{
		ID:         PlayerID(fmt.Sprintf("robot_%d_%s", n, g.newID())),
		Name:       fmt.Sprintf("Robot %d", n),
		Color:      g.takeColor(),
		Robot:      true,
		Difficulty: difficulty,
		Connected:  true,
	}
	g.Players = append(g.Players, p)
	g.emitPlayers()
	return p, nil
}

func (g *GameSession) canJoin() error {
	if g.Started {
		return ErrGameInProgress
	}
	if len(g.Players) >= g.maxPlayers {
		return ErrLobbyFull
	}
	return nil
}

func (g *GameSession) nextRobotNumber() int {
	taken := make(map[string]bool, len(g.Players))
	for _, p := range g.Players {
		taken[p.Name] = true
	}
	n := 1
	for taken[fmt.Sprintf("Robot %d", n)] {
		n++
	}
	return n
}

func (g *GameSession) takeColor() string {
	if len(g.colors) == 0 {
		return ""
	}
	c := g.colors[0]
	g.colors = g.colors[1:]
	return c
}

// RemovePlayer drops a player and returns its colour to the pool. Removing the
// player whose turn it is passes the turn on.
func (g *GameSession) RemovePlayer(id PlayerID) error {
	p, idx := g.Player(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if p.Color != "" {
		g.colors = append(g.colors, p.Color)
	}

	if g.Started {
		switch {
		case len(g.Players) == 0:
			g.discardUpcoming()
			g.checkmate()
		case idx < g.TurnIndex:
			g.TurnIndex--
		case idx == g.TurnIndex:
			g.discardUpcoming()
			g.TurnIndex--
			g.advanceTurn()
		}
		g.broadcastAll()
		return nil
	}
	g.emitPlayers()
	return nil
}

// discardUpcoming drops the drawn tile of a player who left mid-turn. It
// counts as discarded so the deck still adds up.
func (g *GameSession) discardUpcoming() {
	if g.Upcoming != nil {
		g.Upcoming = nil
		g.Discarded++
	}
}

// Disconnect marks a player as gone without removing it. The player keeps its
// seat, colour and score for a later Reconnect.
func (g *GameSession) Disconnect(id PlayerID) error {
	p, _ := g.Player(id)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	p.Connected = false
	p.Robot = false
	g.emitPlayers()
	return nil
}

// Reconnect brings a disconnected player back. It reports false when the player
// is unknown or already connected.
func (g *GameSession) Reconnect(id PlayerID) bool {
	p, _ := g.Player(id)
	if p == nil || p.Connected {
		return false
	}
	p.Connected = true
	p.Robot = false
	g.emitPlayers()
	return true
}

// Robotify hands every seat to a difficulty 3 robot.
func (g *GameSession) Robotify() {
	for _, p := range g.Players {
		p.Robot = true
		p.Difficulty = MaxDifficulty
	}
	g.emitPlayers()
}

// ConnectedHumans counts connected non-robot players.
func (g *GameSession) ConnectedHumans() int {
	n := 0
	for _, p := range g.Players {
		if p.Connected && !p.Robot {
			n++
		}
	}
	return n
}

// Start moves the session to InProgress and hands the first turn out.
func (g *GameSession) Start() error {
	if g.Started {
		return ErrGameInProgress
	}
	if len(g.Players) == 0 {
		return ErrNoPlayers
	}
	if err := g.resetBoard(g.Board.Size); err != nil {
		return err
	}

	g.Started = true
	g.Ended = false
	g.TurnIndex = -1
	g.LastTurnIndex = -1
	for _, p := range g.Players {
		p.Score = 0
		p.IsTurn = false
		p.LastTile = nil
	}

	c := g.Board.Center()
	g.EnableIfEligible(c.Row+1, c.Col)
	g.EnableIfEligible(c.Row-1, c.Col)
	g.EnableIfEligible(c.Row, c.Col+1)
	g.EnableIfEligible(c.Row, c.Col-1)

	g.advanceTurn()
	g.broadcastAll()
	return nil
}

// advanceTurn hands the turn to the next player or ends the game when no legal
// move is left.
func (g *GameSession) advanceTurn() {
	g.LastTurnIndex = g.TurnIndex
	if !g.Started {
		return
	}
	if g.catalog != nil {
		g.rederiveFrontier()
	}
	if g.Frontier.Len() == 0 || len(g.Players) == 0 {
		g.checkmate()
		return
	}

	var fits map[Position][4]bool
	if g.catalog != nil {
		draw, playable := g.drawPlayable()
		if draw == nil {
			g.checkmate()
			return
		}
		g.Upcoming = draw
		fits = playable
	}

	next := g.TurnIndex + 1
	if next >= len(g.Players) || next < 0 {
		next = 0
	}
	g.TurnIndex = next
	player := g.Players[next]

	g.rankFrontier(player.ID)
	for pos, fit := range fits {
		g.Board.Cells[pos.Row][pos.Col].Fitments = fit
		if !AnyFit(fit) {
			g.DisableIfPresent(pos.Row, pos.Col)
		}
	}

	for i, p := range g.Players {
		p.IsTurn = i == next
	}
}

// drawPlayable pops tiles until one fits at least one frontier cell. Tiles that
// fit nowhere are discarded. It returns nil when the deck runs out.
func (g *GameSession) drawPlayable() (*TileDraw, map[Position][4]bool) {
	entries := g.Frontier.Entries()
	for {
		draw, ok := g.Deck.Pop()
		if !ok {
			return nil, nil
		}

		fits := make(map[Position][4]bool, len(entries))
		playable := false
		for _, e := range entries {
			fit := ComputeFitments(g.Board, g.catalog, draw.TileID, e.Row, e.Col)
			fits[Position{Row: e.Row, Col: e.Col}] = fit
			playable = playable || AnyFit(fit)
		}
		if playable {
			return &draw, fits
		}
		g.Discarded++
	}
}

// checkmate is the terminal transition. Scores are left as last computed.
func (g *GameSession) checkmate() {
	g.clearFrontier()
	for _, p := range g.Players {
		p.IsTurn = false
		if p.Robot && !p.Connected {
			p.Robot = false
		}
	}
	g.Upcoming = nil
	g.Started = false
	g.Ended = true
}

// PlaceTurn places the upcoming tile for the player at index using the first
// legal rotation. Illegal moves return false and change nothing.
func (g *GameSession) PlaceTurn(row, col int, playerID PlayerID, index int) bool {
	return g.place(row, col, playerID, index, nil)
}

// PlaceTurnRotated is PlaceTurn with an explicit rotation, which must be legal.
func (g *GameSession) PlaceTurnRotated(row, col int, playerID PlayerID, index int, rotation Rotation) bool {
	return g.place(row, col, playerID, index, &rotation)
}

func (g *GameSession) place(row, col int, playerID PlayerID, index int, rotation *Rotation) bool {
	if !g.Started || g.Ended {
		return false
	}
	if g.TurnIndex < 0 || g.TurnIndex >= len(g.Players) || index != g.TurnIndex {
		return false
	}
	player := g.Players[g.TurnIndex]
	if player.ID != playerID {
		return false
	}
	cell := g.Board.Cell(row, col)
	if cell == nil || cell.Occupied() || !cell.Enabled {
		return false
	}

	rot, ok := g.chooseRotation(row, col, rotation)
	if !ok {
		return false
	}

	g.Board.PlaceTile(row, col, player.ID, index, player.Color, g.Upcoming, rot, &g.Sequence)
	player.LastTile = &Position{Row: row, Col: col}
	g.afterPlacement(row, col)
	g.applyScores()
	g.advanceTurn()
	g.broadcastAll()
	return true
}

func (g *GameSession) chooseRotation(row, col int, requested *Rotation) (Rotation, bool) {
	if g.catalog == nil || g.Upcoming == nil {
		if requested != nil {
			return normalize(*requested), true
		}
		return Rotate0, true
	}

	fits := ComputeFitments(g.Board, g.catalog, g.Upcoming.TileID, row, col)
	if requested != nil {
		r := normalize(*requested)
		if r%90 != 0 || !fits[rotationIndex(r)] {
			return Rotate0, false
		}
		return r, true
	}
	return FirstFit(fits)
}

func (g *GameSession) applyScores() {
	sizes := ComputeGroupSizes(g.Board)
	for _, p := range g.Players {
		p.Score = sizes[p.ID]
	}
}

// RobotStep plays one move if the current player is a robot. It re-reads the
// turn at call time so a human move that landed first wins.
func (g *GameSession) RobotStep() bool {
	if !g.Started || g.TurnIndex < 0 || g.TurnIndex >= len(g.Players) {
		return false
	}
	player := g.Players[g.TurnIndex]
	if !player.Robot {
		return false
	}
	move, ok := SelectMove(g.Frontier.Entries(), player.Difficulty, g.rng)
	if !ok {
		return false
	}
	return g.PlaceTurn(move.Row, move.Col, player.ID, g.TurnIndex)
}

// CurrentRobot reports whether the turn belongs to a robot.
func (g *GameSession) CurrentRobot() bool {
	if !g.Started || g.TurnIndex < 0 || g.TurnIndex >= len(g.Players) {
		return false
	}
	return g.Players[g.TurnIndex].Robot
}

// Reset returns to NotStarted with a fresh board. Players, colours and scores
// are kept.
func (g *GameSession) Reset() error {
	if err := g.resetBoard(g.Board.Size); err != nil {
		return err
	}
	g.Started = false
	g.Ended = false
	g.TurnIndex = -1
	g.LastTurnIndex = -1
	for _, p := range g.Players {
		p.IsTurn = false
	}
	g.broadcastAll()
	return nil
}

// End abandons the game: Reset plus cleared scores and last placements.
func (g *GameSession) End() error {
	for _, p := range g.Players {
		p.Score = 0
		p.LastTile = nil
	}
	return g.Reset()
}

// SetBoardSize rebuilds the board at a new size. Rejected mid-game.
func (g *GameSession) SetBoardSize(size int) error {
	if g.Started {
		return ErrGameInProgress
	}
	if err := g.resetBoard(size); err != nil {
		return err
	}
	g.Ended = false
	g.emitBoard()
	return nil
}

// CurrentTurn describes whose turn it is. PlayerName is "NA" when nobody's.
func (g *GameSession) CurrentTurn() TurnInfo {
	info := TurnInfo{PlayerName: "NA", TurnIndex: g.TurnIndex, DeckRemaining: g.Deck.Remaining()}
	if g.Started && g.TurnIndex >= 0 && g.TurnIndex < len(g.Players) {
		info.PlayerName = g.Players[g.TurnIndex].Name
	}
	if g.Upcoming != nil {
		d := *g.Upcoming
		info.UpcomingTile = &d
	}
	return info
}

// Status returns the started/ended pair.
func (g *GameSession) Status() GameStatus {
	return GameStatus{Started: g.Started, Ended: g.Ended}
}

// PlayerList copies the players in turn order.
func (g *GameSession) PlayerList() []Player {
	out := make([]Player, len(g.Players))
	for i, p := range g.Players {
		out[i] = *p
		if p.LastTile != nil {
			last := *p.LastTile
			out[i].LastTile = &last
		}
	}
	return out
}

// State is a point-in-time copy of a session.
type State struct {
	Board         *Board          `json:"board"`
	Players       []Player        `json:"players"`
	Turn          TurnInfo        `json:"turn"`
	Status        GameStatus      `json:"status"`
	LastTurnIndex int             `json:"last_turn_index"`
	Sequence      int             `json:"sequence"`
	Discarded     int             `json:"discarded"`
	Frontier      []FrontierEntry `json:"frontier"`
	Classic       bool            `json:"classic"`
}

// Snapshot copies the session for readers outside the owning goroutine.
func (g *GameSession) Snapshot() *State {
	return &State{
		Board:         g.Board.Clone(),
		Players:       g.PlayerList(),
		Turn:          g.CurrentTurn(),
		Status:        g.Status(),
		LastTurnIndex: g.LastTurnIndex,
		Sequence:      g.Sequence,
		Discarded:     g.Discarded,
		Frontier:      g.Frontier.Entries(),
		Classic:       g.catalog == nil,
	}
}

func (g *GameSession) emitBoard() {
	g.sink.EmitBoard(g.Board.Clone())
}

func (g *GameSession) emitPlayers() {
	g.sink.EmitPlayers(g.PlayerList())
}

// Broadcast pushes the full state to the sink.
func (g *GameSession) Broadcast() {
	g.broadcastAll()
}

func (g *GameSession) broadcastAll() {
	g.emitBoard()
	g.sink.EmitTurn(g.CurrentTurn())
	g.emitPlayers()
	g.sink.EmitGameStatus(g.Status())
}

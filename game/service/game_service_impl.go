package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/wricardo/carcacity/game/engine"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrLobbyNotFound   = errors.New("lobby not found")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	defaults LobbyDefaults
	sinks    SinkFactory
}

// Option customises the service.
type Option func(*gameServiceImpl)

// WithDefaults sets the lobby defaults.
func WithDefaults(d LobbyDefaults) Option {
	return func(s *gameServiceImpl) { s.defaults = d }
}

// WithSinks wires a broadcast sink into every new lobby.
func WithSinks(f SinkFactory) Option {
	return func(s *gameServiceImpl) { s.sinks = f }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		defaults: LobbyDefaults{BoardSize: engine.DefaultBoardSize, MaxPlayers: engine.MaxPlayers},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLobby creates a new lobby
func (s *gameServiceImpl) CreateLobby(ctx context.Context, req CreateLobbyRequest) (*LobbyInfo, error) {
	opts := LobbyOptions{
		BoardSize:  req.BoardSize,
		MaxPlayers: s.defaults.MaxPlayers,
		Colors:     s.defaults.Colors,
		RobotSpeed: s.defaults.RobotSpeed,
		Sinks:      s.sinks,
	}
	if opts.BoardSize == 0 {
		opts.BoardSize = s.defaults.BoardSize
	}
	if err := engine.ValidateBoardSize(opts.BoardSize); err != nil {
		return nil, err
	}

	if !req.Classic {
		catalog, id, err := s.resolveCatalog(req.CatalogID)
		if err != nil {
			return nil, err
		}
		opts.Catalog = catalog
		opts.CatalogID = id
	}

	// Let session manager generate a proper 4-character ID
	lobby, err := s.sessions.Create("", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}
	log.Printf("[LOBBY] created %s catalog=%q size=%d", lobby.ID, opts.CatalogID, opts.BoardSize)
	return lobbyInfo(lobby), nil
}

func (s *gameServiceImpl) resolveCatalog(id string) (*engine.TileCatalog, string, error) {
	if id == "" {
		catalog := s.configs.GetDefault()
		if catalog == nil {
			catalog = engine.DefaultCatalog()
		}
		return catalog, catalog.Name, nil
	}

	catalog, err := s.configs.LoadCatalog(id)
	if err == nil {
		return catalog, id, nil
	}

	available, listErr := s.configs.ListCatalogs()
	if listErr == nil && len(available) > 0 {
		var ids []string
		for _, c := range available {
			ids = append(ids, c.CatalogID)
		}
		return nil, "", fmt.Errorf("%w: %q (available: %v): %v", ErrCatalogNotFound, id, ids, err)
	}
	return nil, "", fmt.Errorf("%w: %q: %v", ErrCatalogNotFound, id, err)
}

// GetLobby retrieves lobby information
func (s *gameServiceImpl) GetLobby(ctx context.Context, lobbyID string) (*LobbyInfo, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}
	return lobbyInfo(lobby), nil
}

// ListLobbies returns all lobbies, oldest first
func (s *gameServiceImpl) ListLobbies(ctx context.Context) ([]*LobbyInfo, error) {
	lobbies := s.sessions.List()
	infos := make([]*LobbyInfo, 0, len(lobbies))
	for _, l := range lobbies {
		infos = append(infos, lobbyInfo(l))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos, nil
}

// DeleteLobby tears a lobby down
func (s *gameServiceImpl) DeleteLobby(ctx context.Context, lobbyID string) error {
	if err := s.sessions.Delete(lobbyID); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLobbyNotFound, lobbyID, err)
	}
	log.Printf("[LOBBY] deleted %s", lobbyID)
	return nil
}

// Join seats a client when there is room and no game running, and makes it a
// spectator otherwise. A disconnected player gets its seat back.
func (s *gameServiceImpl) Join(ctx context.Context, lobbyID, clientID, name string) (*JoinResult, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	var result *JoinResult
	err = lobby.Do(func(g *engine.GameSession) error {
		id := engine.PlayerID(clientID)
		if p, _ := g.Player(id); p != nil {
			rejoined := g.Reconnect(id)
			if rejoined {
				lobby.resetSpeed()
			}
			result = &JoinResult{ClientID: clientID, Role: RolePlayer, Rejoined: rejoined, Player: copyPlayer(p)}
			return nil
		}

		p, err := g.AddPlayer(id, name)
		if err == nil {
			delete(lobby.spectators, clientID)
			lobby.resetSpeed()
			result = &JoinResult{ClientID: clientID, Role: RolePlayer, Player: copyPlayer(p)}
			return nil
		}
		if !errors.Is(err, engine.ErrLobbyFull) && !errors.Is(err, engine.ErrGameInProgress) {
			return err
		}

		spec, ok := lobby.spectators[clientID]
		if !ok {
			spec = &Spectator{ClientID: clientID}
			lobby.spectators[clientID] = spec
		}
		result = &JoinResult{ClientID: clientID, Role: RoleSpectator, Rejoined: ok && !spec.Connected}
		spec.Connected = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LOBBY] %s joined %s as %s (rejoined=%v)", clientID, lobby.ID, result.Role, result.Rejoined)
	return result, nil
}

// Leave removes a player or spectator for good
func (s *gameServiceImpl) Leave(ctx context.Context, lobbyID, clientID string) error {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return err
	}

	return lobby.Do(func(g *engine.GameSession) error {
		if _, ok := lobby.spectators[clientID]; ok {
			delete(lobby.spectators, clientID)
			return nil
		}
		if err := g.RemovePlayer(engine.PlayerID(clientID)); err != nil {
			return err
		}
		lobby.hurryIfUnattended()
		log.Printf("[LOBBY] %s left %s", clientID, lobby.ID)
		return nil
	})
}

// Disconnect marks a client as gone but keeps its seat
func (s *gameServiceImpl) Disconnect(ctx context.Context, lobbyID, clientID string) error {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return err
	}

	return lobby.Do(func(g *engine.GameSession) error {
		if spec, ok := lobby.spectators[clientID]; ok {
			spec.Connected = false
			return nil
		}
		if err := g.Disconnect(engine.PlayerID(clientID)); err != nil {
			return err
		}
		lobby.hurryIfUnattended()
		log.Printf("[LOBBY] %s disconnected from %s", clientID, lobby.ID)
		return nil
	})
}

// AddRobot seats a robot player
func (s *gameServiceImpl) AddRobot(ctx context.Context, lobbyID string, difficulty int) (*engine.Player, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}

	var robot *engine.Player
	err = lobby.Do(func(g *engine.GameSession) error {
		p, err := g.AddRobot(difficulty)
		if err != nil {
			return err
		}
		lobby.hurryIfUnattended()
		robot = copyPlayer(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[ROBOT] %s joined %s at difficulty %d", robot.Name, lobby.ID, robot.Difficulty)
	return robot, nil
}

// Robotify hands every seat to a robot and speeds the loop up
func (s *gameServiceImpl) Robotify(ctx context.Context, lobbyID string) error {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return err
	}
	return lobby.Do(func(g *engine.GameSession) error {
		g.Robotify()
		lobby.speed = RobotifySpeed
		return nil
	})
}

// Start starts the game
func (s *gameServiceImpl) Start(ctx context.Context, lobbyID string) (*engine.State, error) {
	return s.mutate(lobbyID, func(g *engine.GameSession) error {
		if err := g.Start(); err != nil {
			return err
		}
		log.Printf("[LOBBY] game started in %s with %d players", lobbyID, len(g.Players))
		return nil
	})
}

// PlaceTile places the upcoming tile for a player
func (s *gameServiceImpl) PlaceTile(ctx context.Context, lobbyID string, req PlaceRequest) (*PlaceResult, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}

	result := &PlaceResult{}
	lobby.Do(func(g *engine.GameSession) error {
		id := engine.PlayerID(req.PlayerID)
		if req.Rotation != nil {
			result.Accepted = g.PlaceTurnRotated(req.Row, req.Col, id, req.Index, engine.Rotation(*req.Rotation))
		} else {
			result.Accepted = g.PlaceTurn(req.Row, req.Col, id, req.Index)
		}
		result.State = g.Snapshot()
		return nil
	})

	if result.Accepted {
		result.Message = fmt.Sprintf("Placed at (%d,%d)", req.Row, req.Col)
		log.Printf("[PLACE] lobby=%s player=%s at (%d,%d)", lobby.ID, req.PlayerID, req.Row, req.Col)
	} else {
		result.Message = "Move rejected"
	}
	return result, nil
}

// Reset clears the board and keeps the players
func (s *gameServiceImpl) Reset(ctx context.Context, lobbyID string) (*engine.State, error) {
	return s.mutate(lobbyID, func(g *engine.GameSession) error { return g.Reset() })
}

// End abandons the running game
func (s *gameServiceImpl) End(ctx context.Context, lobbyID string) (*engine.State, error) {
	return s.mutate(lobbyID, func(g *engine.GameSession) error { return g.End() })
}

// SetBoardSize resizes the board between games
func (s *gameServiceImpl) SetBoardSize(ctx context.Context, lobbyID string, size int) (*engine.State, error) {
	return s.mutate(lobbyID, func(g *engine.GameSession) error { return g.SetBoardSize(size) })
}

// GetGameState returns a snapshot of the game
func (s *gameServiceImpl) GetGameState(ctx context.Context, lobbyID string) (*engine.State, error) {
	return s.mutate(lobbyID, func(*engine.GameSession) error { return nil })
}

// CurrentTurn describes whose turn it is
func (s *gameServiceImpl) CurrentTurn(ctx context.Context, lobbyID string) (*engine.TurnInfo, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}
	var turn engine.TurnInfo
	lobby.Do(func(g *engine.GameSession) error {
		turn = g.CurrentTurn()
		return nil
	})
	return &turn, nil
}

// ListCatalogs returns all available catalogs
func (s *gameServiceImpl) ListCatalogs(ctx context.Context) ([]*CatalogInfo, error) {
	return s.configs.ListCatalogs()
}

// LoadCatalog loads a specific catalog
func (s *gameServiceImpl) LoadCatalog(ctx context.Context, name string) (*engine.TileCatalog, error) {
	return s.configs.LoadCatalog(name)
}

// SaveCatalog saves a catalog
func (s *gameServiceImpl) SaveCatalog(ctx context.Context, name string, catalog *engine.TileCatalog) error {
	return s.configs.SaveCatalog(name, catalog)
}

// lobby fetches a lobby and records the access
func (s *gameServiceImpl) lobby(id string) (*Lobby, error) {
	lobby, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLobbyNotFound, id, err)
	}
	s.sessions.UpdateLastAccessed(id)
	return lobby, nil
}

// mutate runs fn under the lobby lock and returns the resulting state
func (s *gameServiceImpl) mutate(lobbyID string, fn func(g *engine.GameSession) error) (*engine.State, error) {
	lobby, err := s.lobby(lobbyID)
	if err != nil {
		return nil, err
	}

	var state *engine.State
	err = lobby.Do(func(g *engine.GameSession) error {
		if err := fn(g); err != nil {
			return err
		}
		state = g.Snapshot()
		return nil
	})
	return state, err
}

func lobbyInfo(l *Lobby) *LobbyInfo {
	info := &LobbyInfo{
		ID:             l.ID,
		CatalogID:      l.CatalogID,
		CreatedAt:      l.CreatedAt,
		LastAccessedAt: l.LastAccessed(),
	}
	l.Do(func(g *engine.GameSession) error {
		info.Classic = !g.HasCatalog()
		info.BoardSize = g.Board.Size
		info.Players = g.PlayerList()
		info.Spectators = l.spectatorList()
		info.Status = g.Status()
		info.RobotSpeedMS = l.speed.Milliseconds()
		return nil
	})
	return info
}

func copyPlayer(p *engine.Player) *engine.Player {
	c := *p
	if p.LastTile != nil {
		last := *p.LastTile
		c.LastTile = &last
	}
	return &c
}

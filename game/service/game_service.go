package service

import (
	"context"
	"time"

	"github.com/wricardo/carcacity/game/engine"
)

// GameService defines all lobby and game operations
type GameService interface {
	// Lobby Management
	CreateLobby(ctx context.Context, req CreateLobbyRequest) (*LobbyInfo, error)
	GetLobby(ctx context.Context, lobbyID string) (*LobbyInfo, error)
	ListLobbies(ctx context.Context) ([]*LobbyInfo, error)
	DeleteLobby(ctx context.Context, lobbyID string) error

	// Presence
	Join(ctx context.Context, lobbyID, clientID, name string) (*JoinResult, error)
	Leave(ctx context.Context, lobbyID, clientID string) error
	Disconnect(ctx context.Context, lobbyID, clientID string) error

	// Robots
	AddRobot(ctx context.Context, lobbyID string, difficulty int) (*engine.Player, error)
	Robotify(ctx context.Context, lobbyID string) error

	// Game Operations
	Start(ctx context.Context, lobbyID string) (*engine.State, error)
	PlaceTile(ctx context.Context, lobbyID string, req PlaceRequest) (*PlaceResult, error)
	Reset(ctx context.Context, lobbyID string) (*engine.State, error)
	End(ctx context.Context, lobbyID string) (*engine.State, error)
	SetBoardSize(ctx context.Context, lobbyID string, size int) (*engine.State, error)

	// Game State
	GetGameState(ctx context.Context, lobbyID string) (*engine.State, error)
	CurrentTurn(ctx context.Context, lobbyID string) (*engine.TurnInfo, error)

	// Catalogs
	ListCatalogs(ctx context.Context) ([]*CatalogInfo, error)
	LoadCatalog(ctx context.Context, name string) (*engine.TileCatalog, error)
	SaveCatalog(ctx context.Context, name string, catalog *engine.TileCatalog) error
}

// SessionManager defines lobby storage operations
type SessionManager interface {
	Create(id string, opts LobbyOptions) (*Lobby, error)
	Get(id string) (*Lobby, error)
	List() []*Lobby
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles tile catalog loading
type ConfigManager interface {
	LoadCatalog(name string) (*engine.TileCatalog, error)
	ListCatalogs() ([]*CatalogInfo, error)
	GetDefault() *engine.TileCatalog
	SaveCatalog(name string, catalog *engine.TileCatalog) error
}

// LobbyDefaults are applied to every lobby the service creates.
type LobbyDefaults struct {
	BoardSize  int
	MaxPlayers int
	Colors     []string
	RobotSpeed time.Duration
}

// SinkFactory returns the broadcast sink for a lobby.
type SinkFactory func(lobbyID string) engine.Broadcaster

package service

import (
	"time"

	"github.com/wricardo/carcacity/game/engine"
)

// CreateLobbyRequest selects the tile set and board for a new lobby.
type CreateLobbyRequest struct {
	CatalogID string `json:"catalog_id"` // empty uses the default catalog
	BoardSize int    `json:"board_size"`
	Classic   bool   `json:"classic"` // play without tiles or edge matching
}

// LobbyInfo provides information about a lobby
type LobbyInfo struct {
	ID             string            `json:"id"`
	CatalogID      string            `json:"catalog_id"`
	Classic        bool              `json:"classic"`
	BoardSize      int               `json:"board_size"`
	Players        []engine.Player   `json:"players"`
	Spectators     []Spectator       `json:"spectators"`
	Status         engine.GameStatus `json:"status"`
	RobotSpeedMS   int64             `json:"robot_speed_ms"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
}

// Join roles
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// JoinResult tells a client whether it got a seat.
type JoinResult struct {
	ClientID string         `json:"client_id"`
	Role     string         `json:"role"`
	Rejoined bool           `json:"rejoined"`
	Player   *engine.Player `json:"player,omitempty"`
}

// PlaceRequest is a tile placement by the player at Index.
type PlaceRequest struct {
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	PlayerID string `json:"player_id"`
	Index    int    `json:"index"`
	Rotation *int   `json:"rotation,omitempty"` // degrees; nil picks the first legal rotation
}

// PlaceResult reports whether a placement was taken. Rejected moves are not
// errors; the state is returned unchanged.
type PlaceResult struct {
	Accepted bool          `json:"accepted"`
	Message  string        `json:"message"`
	State    *engine.State `json:"state"`
}

// CatalogInfo provides information about a tile catalog
type CatalogInfo struct {
	Filename     string `json:"filename"`
	CatalogID    string `json:"catalog_id"` // The identifier to use for lobby creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	Subdivisions int    `json:"subdivisions"`
	TileKinds    int    `json:"tile_kinds"`
	DeckSize     int    `json:"deck_size"`
}

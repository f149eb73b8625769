// Package service provides the business logic layer for the Carcacity server.
//
// The service package implements:
//   - Multi-lobby game management
//   - Presence: players, spectators, disconnect and rejoin
//   - Robot seats and the per-lobby robot loop
//   - Tile placement routing and state snapshots
//   - Tile catalog access
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager stores lobbies. ConfigManager loads tile catalogs.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// game engine. Each Lobby owns one engine.GameSession behind a mutex; every
// action, including a robot's move, runs under that mutex, so a game only ever
// sees one action at a time. Lobbies share nothing with each other.
//
// Usage:
//
//	sessions := session.NewManager()
//	catalogs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, catalogs,
//		service.WithSinks(hub.ForLobby))
//
//	lobby, err := svc.CreateLobby(ctx, service.CreateLobbyRequest{BoardSize: 9})
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc.Join(ctx, lobby.ID, "client-1", "Alice")
//	svc.AddRobot(ctx, lobby.ID, 3)
//	svc.Start(ctx, lobby.ID)
//
// Robot Loop:
//
// Every lobby runs one goroutine that sleeps the lobby's robot speed and then,
// holding the lobby lock, lets the current player move if it is a robot. The
// speed drops to a sixth when no human is connected and to 100ms after
// Robotify. Closing the lobby stops the goroutine.
package service

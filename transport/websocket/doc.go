// Package websocket pushes lobby state to browsers.
//
// A single Hub owns every connection, grouped by lobby ID. Clients connect
// with ?lobby=<id>&client=<id>; frames flow one way only, since players act
// through the HTTP API. Every frame is a JSON envelope:
//
//	{"lobby_id": "ab12cd", "event": "turn", "data": {...}}
//
// Events are "board", "turn", "players" and "game_status", emitted through
// the engine.Broadcaster returned by ForLobby. Payloads are marshalled at
// emit time, so the game may keep mutating its state afterwards.
//
// When the last connection for a client ID closes, the disconnect handler
// is invoked so the game can mark that player as away.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetDisconnectHandler(onDrop)
//	go hub.Run()
//	defer hub.Stop()
//
//	svc := service.NewGameService(sessions, configs, service.WithSinks(hub.ForLobby))
package websocket

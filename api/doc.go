// Package api exposes lobbies and games over HTTP.
//
// Endpoints:
//
// Lobbies:
//   - POST   /api/lobbies              create ({catalog_id, board_size, classic})
//   - GET    /api/lobbies              list (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/lobbies/{id}         lobby details
//   - DELETE /api/lobbies/{id}         close a lobby
//
// Presence:
//   - POST   /api/lobbies/{id}/players                       join ({client_id, name})
//   - DELETE /api/lobbies/{id}/players/{clientId}            leave
//   - POST   /api/lobbies/{id}/players/{clientId}/disconnect  keep the seat, mark away
//   - POST   /api/lobbies/{id}/robots                        add a robot ({difficulty})
//   - POST   /api/lobbies/{id}/robotify                      robots take every seat
//
// Game:
//   - GET  /api/lobbies/{id}/state   full snapshot
//   - GET  /api/lobbies/{id}/turn    whose turn and the upcoming tile
//   - POST /api/lobbies/{id}/start
//   - POST /api/lobbies/{id}/place   {row, col, player_id, index, rotation?}
//   - POST /api/lobbies/{id}/reset   new board, scores kept
//   - POST /api/lobbies/{id}/end     abandon the game
//   - PUT  /api/lobbies/{id}/size    {size}
//
// Catalogs:
//   - GET  /api/catalogs
//   - GET  /api/catalogs/{name}
//   - POST /api/catalogs
//
// A rejected placement answers 200 with "accepted": false. Errors are JSON
// objects with an "error" field: 404 for unknown lobbies, players and
// catalogs, 409 for lobby state conflicts, 400 for bad input and 429 when a
// client exceeds its request budget.
//
// Live updates are served at /ws?lobby=<id>&client=<id>; see package
// websocket.
package api

// Package mcp exposes Carcacity to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API, and the JSON answer is rendered as plain text with an ASCII board.
//
// Tools:
//   - create_lobby, list_lobbies, get_lobby
//   - join_lobby, leave_lobby, add_robot, robotify
//   - start_game, game_state, current_turn, place_tile
//   - reset_game, end_game, set_board_size
//   - list_catalogs, game_instructions
//
// Transport Modes:
//   - Stdio: `carcacity stdio-mcp --api-url http://localhost:3001`
//   - HTTP: the server mounts the same tool set at /mcp
package mcp

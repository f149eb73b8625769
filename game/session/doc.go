// Package session provides the lobby registry for the Carcacity server.
//
// The session package implements:
//   - Thread-safe lobby storage and retrieval
//   - Unique 4-character lobby ID generation
//   - Lobby teardown, which stops the lobby's robot loop
//   - Expiry of idle lobbies
//
// Lobby Identifiers:
//
// Lobbies use 4-character hex IDs for easy sharing. Lookups are
// case-insensitive. The manager is the only owner of a lobby; lobbies never
// reference the manager.
package session

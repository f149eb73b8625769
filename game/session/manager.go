package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/carcacity/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Manager owns every live lobby. Removing a lobby from the manager stops it.
type Manager struct {
	lobbies map[string]*service.Lobby
	mu      sync.RWMutex
}

// NewManager creates a new lobby registry
func NewManager() *Manager {
	return &Manager{
		lobbies: make(map[string]*service.Lobby),
	}
}

// Create creates a lobby with the given ID, or a generated one when id is empty
func (m *Manager) Create(id string, opts service.LobbyOptions) (*service.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.uniqueID()
	}
	key := strings.ToLower(id)
	if _, exists := m.lobbies[key]; exists {
		return nil, ErrSessionAlreadyExists
	}

	lobby, err := service.NewLobby(id, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	m.lobbies[key] = lobby
	return lobby, nil
}

// Get retrieves a lobby by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lobby, exists := m.lobbies[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return lobby, nil
}

// List returns all lobbies
func (m *Manager) List() []*service.Lobby {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Lobby, 0, len(m.lobbies))
	for _, lobby := range m.lobbies {
		result = append(result, lobby)
	}
	return result
}

// Delete removes a lobby and stops its robot loop
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	key := strings.ToLower(id)
	lobby, exists := m.lobbies[key]
	if exists {
		delete(m.lobbies, key)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	lobby.Close()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a lobby
func (m *Manager) UpdateLastAccessed(id string) error {
	lobby, err := m.Get(id)
	if err != nil {
		return err
	}
	lobby.Touch()
	return nil
}

// CleanupExpiredSessions removes lobbies that haven't been accessed in the
// given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Lobby
	for key, lobby := range m.lobbies {
		if lobby.LastAccessed().Before(cutoff) {
			delete(m.lobbies, key)
			expired = append(expired, lobby)
		}
	}
	m.mu.Unlock()

	for _, lobby := range expired {
		lobby.Close()
	}
	return len(expired)
}

// CloseAll stops and removes every lobby
func (m *Manager) CloseAll() {
	m.mu.Lock()
	lobbies := m.lobbies
	m.lobbies = make(map[string]*service.Lobby)
	m.mu.Unlock()

	for _, lobby := range lobbies {
		lobby.Close()
	}
}

// Count returns the number of live lobbies
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lobbies)
}

// uniqueID generates a random 4-character lobby ID not already in use.
// Callers hold m.mu.
func (m *Manager) uniqueID() string {
	for {
		id := generateSessionID()
		if _, exists := m.lobbies[id]; !exists {
			return id
		}
	}
}

func generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

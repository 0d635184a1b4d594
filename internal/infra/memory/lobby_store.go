package memory

import (
	"sync"

	"cyberhoot-service/internal/app"
)

// LobbyStore is an in-memory implementation of app.LobbyStore.
type LobbyStore struct {
	mu      sync.RWMutex
	lobbies map[string]*app.Lobby
}

func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[string]*app.Lobby),
	}
}

func (s *LobbyStore) GetOrCreate(sessionID string) *app.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lobby, ok := s.lobbies[sessionID]; ok {
		return lobby
	}
	lobby := app.NewLobby(sessionID)
	s.lobbies[sessionID] = lobby
	return lobby
}

func (s *LobbyStore) Get(sessionID string) (*app.Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[sessionID]
	return lobby, ok
}

func (s *LobbyStore) DeleteIfIdle(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobby, ok := s.lobbies[sessionID]
	if !ok {
		return
	}
	if lobby.IsIdle() {
		delete(s.lobbies, sessionID)
	}
}

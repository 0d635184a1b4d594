package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"cyberhoot-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// LobbyStore keeps lobbies in process, as broadcast happens locally, and
// marks each live lobby in Redis so other instances can see it exists.
type LobbyStore struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	lobbies map[string]*app.Lobby
}

func NewLobbyStore(client *redis.Client, ttl time.Duration) *LobbyStore {
	return &LobbyStore{
		client:  client,
		ttl:     ttl,
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
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err(); err != nil {
		log.Printf("mark lobby %s live: %v", sessionID, err)
	}
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
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *LobbyStore) key(sessionID string) string {
	return "quiz:lobby:" + sessionID
}

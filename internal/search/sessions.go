package search

import (
	"context"
	"sync"
	"time"

	"github.com/mmeshcher/shelterlink-system/internal/model"
)

// defaultSessionTTL — время жизни сессии поиска с момента последнего обращения.
const defaultSessionTTL = 12 * time.Hour

type sessionEntry struct {
	session   model.SearchSession
	touchedAt time.Time
}

// SessionStore хранит сессии поиска в памяти. Сессии живут ограниченное время
// и никогда не попадают в документное хранилище.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]sessionEntry
	ttl     time.Duration
}

// NewSessionStore создаёт пустое хранилище сессий поиска.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]sessionEntry),
		ttl:     defaultSessionTTL,
	}
}

// Get возвращает сессию поиска по идентификатору. Для неизвестного
// идентификатора возвращается сессия со значениями по умолчанию.
func (s *SessionStore) Get(id string) model.SearchSession {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return model.NewSearchSession()
	}

	return entry.session
}

// Save сохраняет сессию поиска под указанным идентификатором.
func (s *SessionStore) Save(id string, session model.SearchSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = sessionEntry{
		session:   session,
		touchedAt: time.Now(),
	}
}

// StartCleanup запускает фоновую чистку устаревших сессий.
func (s *SessionStore) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.prune(time.Now())
			}
		}
	}()
}

func (s *SessionStore) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if now.Sub(entry.touchedAt) > s.ttl {
			delete(s.entries, id)
		}
	}
}

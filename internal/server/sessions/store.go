package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
)

// Store persists session state. Load returns common.ErrorNotFound for unknown
// or expired ids. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, sid string, id Identity, ttl time.Duration) error
	Load(ctx context.Context, sid string) (Identity, error)
	Delete(ctx context.Context, sid string) error
}

type memoryEntry struct {
	identity  Identity
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily on
// Load and swept on Save.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, sid string, id Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}

	s.entries[sid] = memoryEntry{identity: id, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sid string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sid]
	if !ok {
		return Anonymous, common.ErrorNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, sid)
		return Anonymous, common.ErrorNotFound
	}
	return e.identity, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sid)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

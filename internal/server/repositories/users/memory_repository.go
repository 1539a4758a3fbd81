package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. A single mutex makes every
// check-and-insert atomic, which gives the same uniqueness guarantees as the
// database constraints.
type MemoryRepository struct {
	mu           sync.RWMutex
	byID         map[string]*models.User
	byUserName   map[string]string
	byExternalID map[string]string
	order        []string
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:         make(map[string]*models.User),
		byUserName:   make(map[string]string),
		byExternalID: make(map[string]string),
		now:          time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.UserName != "" {
		if _, ok := r.byUserName[user.UserName]; ok {
			return nil, common.ErrDuplicateUsername
		}
	}

	stored := r.insertLocked(&models.User{UserName: user.UserName, PasswordHash: user.PasswordHash})

	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return user, nil
}

func (r *MemoryRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUserName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) FindOrCreateByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byExternalID[externalID]; ok {
		u := r.byID[id]
		u.UpdatedAt = r.now()
		return clone(u), nil
	}

	return clone(r.insertLocked(&models.User{ExternalID: externalID})), nil
}

func (r *MemoryRepository) UpdateSecret(ctx context.Context, id string, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Secret = &secret
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) ListSecrets(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	secrets := make([]string, 0)
	for _, id := range r.order {
		if s := r.byID[id].Secret; s != nil {
			secrets = append(secrets, *s)
		}
	}
	return secrets, nil
}

func (r *MemoryRepository) insertLocked(u *models.User) *models.User {
	now := r.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.byID[u.ID] = u
	r.order = append(r.order, u.ID)
	if u.UserName != "" {
		r.byUserName[u.UserName] = u.ID
	}
	if u.ExternalID != "" {
		r.byExternalID[u.ExternalID] = u.ID
	}
	return u
}

func clone(u *models.User) *models.User {
	c := *u
	if u.Secret != nil {
		s := *u.Secret
		c.Secret = &s
	}
	return &c
}

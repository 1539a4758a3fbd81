package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/auth"
)

const sessionIDBytes = 32

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	logger logging.Logger
}

func NewManager(store Store, secret []byte, ttl time.Duration, logger logging.Logger) *Manager {
	return &Manager{
		store:  store,
		secret: secret,
		ttl:    ttl,
		logger: logger.With("module", "sessions"),
	}
}

// TTL is the lifetime of both the stored session and its token.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create stores id under a fresh random session id and returns the signed
// token for the browser.
func (m *Manager) Create(ctx context.Context, id Identity) (string, error) {
	if !id.Authenticated() {
		return "", common.ErrorUnauthorized
	}

	sid, err := common.MakeRandHexString(sessionIDBytes)
	if err != nil {
		return "", err
	}

	if err := m.store.Save(ctx, sid, id, m.ttl); err != nil {
		return "", err
	}

	token, err := auth.GenerateToken(sid, m.secret, m.ttl)
	if err != nil {
		_ = m.store.Delete(ctx, sid)
		return "", err
	}

	m.logger.Debug(ctx, "session created", "user_id", id.UserID)
	return token, nil
}

// Resolve never fails: anything short of a valid token pointing at a live
// session is Anonymous.
func (m *Manager) Resolve(ctx context.Context, token string) Identity {
	if token == "" {
		return Anonymous
	}

	sid, err := auth.GetSessionIDFromToken(token, m.secret)
	if err != nil {
		return Anonymous
	}

	id, err := m.store.Load(ctx, sid)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			m.logger.Error(ctx, "session store load failed", "error", err)
		}
		return Anonymous
	}

	return id
}

// Destroy removes the session the token points at. Tokens that do not verify
// have nothing to destroy.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sid, err := auth.GetSessionIDFromToken(token, m.secret)
	if err != nil {
		return nil
	}

	if err := m.store.Delete(ctx, sid); err != nil {
		m.logger.Error(ctx, "session store delete failed", "error", err)
		return err
	}
	return nil
}

package services

import (
	"context"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
)

// Strategy is one way of establishing who a user is. Handlers pick the
// strategy by route; methods that do not apply return common.ErrUnsupported.
type Strategy interface {
	Name() string
	BeginExternalAuth(ctx context.Context) (state string, redirectURL string, err error)
	CompleteExternalAuth(ctx context.Context, state, code, providerError string) (*models.User, error)
	VerifyLocalCredential(ctx context.Context, username, password string) (*models.User, error)
}

// ExternalBroker is the part of the OAuth broker a strategy needs.
type ExternalBroker interface {
	Begin(ctx context.Context) (state string, authURL string, err error)
	Complete(ctx context.Context, state, code, providerError string) (*models.User, error)
}

type LocalStrategy struct {
	users *UserService
}

func NewLocalStrategy(users *UserService) *LocalStrategy {
	return &LocalStrategy{users: users}
}

func (s *LocalStrategy) Name() string { return "local" }

func (s *LocalStrategy) BeginExternalAuth(context.Context) (string, string, error) {
	return "", "", common.ErrUnsupported
}

func (s *LocalStrategy) CompleteExternalAuth(context.Context, string, string, string) (*models.User, error) {
	return nil, common.ErrUnsupported
}

func (s *LocalStrategy) VerifyLocalCredential(ctx context.Context, username, password string) (*models.User, error) {
	return s.users.Verify(ctx, username, password)
}

type OAuth2Strategy struct {
	name   string
	broker ExternalBroker
}

func NewOAuth2Strategy(name string, broker ExternalBroker) *OAuth2Strategy {
	return &OAuth2Strategy{name: name, broker: broker}
}

func (s *OAuth2Strategy) Name() string { return s.name }

func (s *OAuth2Strategy) BeginExternalAuth(ctx context.Context) (string, string, error) {
	return s.broker.Begin(ctx)
}

func (s *OAuth2Strategy) CompleteExternalAuth(ctx context.Context, state, code, providerError string) (*models.User, error) {
	return s.broker.Complete(ctx, state, code, providerError)
}

func (s *OAuth2Strategy) VerifyLocalCredential(context.Context, string, string) (*models.User, error) {
	return nil, common.ErrUnsupported
}

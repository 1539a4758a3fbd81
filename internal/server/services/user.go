// Package services contains server-side business logic. This file implements
// UserService, the credential manager: registration and verification of
// local username/password accounts.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/auth"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/repomanager"
)

// UserService registers and verifies local accounts. The hasher decides the
// credential encoding; the repository unique constraint decides duplicates.
type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	dummyHash   string
	logger      logging.Logger
}

// NewUserService precomputes a dummy hash so that verifying an unknown user
// costs the same as verifying a wrong password.
func NewUserService(m repomanager.RepositoryManager, hasher auth.Hasher, logger logging.Logger) (*UserService, error) {
	dummy, err := hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &UserService{
		repomanager: m,
		hasher:      hasher,
		dummyHash:   dummy,
		logger:      logger.With("module", "users"),
	}, nil
}

// Register creates a local account. Empty username or password yields
// common.ErrValidation; a taken username yields common.ErrDuplicateUsername.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, common.ErrValidation
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, common.ErrValidation
		}
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	u, err := s.repomanager.Users().Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			return nil, common.ErrDuplicateUsername
		}
		s.logger.Error(ctx, "user create failed", "error", err)
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Verify checks a username/password pair. Unknown users and wrong passwords
// both yield common.ErrInvalidCredentials.
func (s *UserService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users().GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !user.HasPassword() {
		_ = s.hasher.Compare(s.dummyHash, password)
		return nil, common.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

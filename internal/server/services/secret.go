package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/repomanager"
)

// SecretService stores one secret per user and lists them without owners.
type SecretService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewSecretService(m repomanager.RepositoryManager, logger logging.Logger) *SecretService {
	return &SecretService{repomanager: m, logger: logger.With("module", "secrets")}
}

// Submit replaces the user's secret. Blank input yields common.ErrValidation.
func (s *SecretService) Submit(ctx context.Context, userID, secret string) error {
	if userID == "" {
		return common.ErrorUnauthorized
	}
	if strings.TrimSpace(secret) == "" {
		return common.ErrValidation
	}

	if err := s.repomanager.Users().UpdateSecret(ctx, userID, secret); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error storing secret: %w", err)
	}

	s.logger.Info(ctx, "secret updated", "user_id", userID)
	return nil
}

func (s *SecretService) List(ctx context.Context) ([]string, error) {
	secrets, err := s.repomanager.Users().ListSecrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing secrets: %w", err)
	}
	return secrets, nil
}

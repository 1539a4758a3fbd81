// Package users declares the user store contract and its PostgreSQL and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/usersecrets/internal/server/models"
)

// Repository persists users. Username and external id are unique when present;
// implementations enforce this atomically, never by reading before writing.
type Repository interface {
	// Create inserts a local user. A taken username yields common.ErrDuplicateUsername.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin returns common.ErrorNotFound for an unknown username.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)

	// GetByID returns common.ErrorNotFound for an unknown id.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// FindOrCreateByExternalID returns the user linked to externalID, creating
	// it in the same statement when absent. Concurrent calls with the same id
	// observe a single user.
	FindOrCreateByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// UpdateSecret replaces the user's secret; common.ErrorNotFound when the id is unknown.
	UpdateSecret(ctx context.Context, id string, secret string) error

	// ListSecrets returns every non-null secret, oldest user first.
	ListSecrets(ctx context.Context) ([]string, error)
}

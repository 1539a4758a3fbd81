package repomanager

import (
	"context"

	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/users"
)

// RepositoryManager owns the storage backend and vends repositories bound to it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Ping(ctx context.Context) error
	Close() error
}

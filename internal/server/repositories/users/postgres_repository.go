package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/dbx"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		dbx.NullString(user.UserName), dbx.NullString(user.PasswordHash)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, external_id, secret, created_at, updated_at FROM users
		 WHERE username = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, password_hash, external_id, secret, created_at, updated_at FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindOrCreateByExternalID relies on the unique external_id constraint. The
// no-op update on conflict makes RETURNING yield the existing row.
func (r *PostgresRepository) FindOrCreateByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query :=
		`INSERT INTO users (external_id)
		 VALUES ($1)
		 ON CONFLICT (external_id) DO UPDATE SET updated_at = now()
		 RETURNING id, username, password_hash, external_id, secret, created_at, updated_at
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, externalID))
}

func (r *PostgresRepository) UpdateSecret(ctx context.Context, id string, secret string) error {
	query :=
		`UPDATE users SET secret = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) ListSecrets(ctx context.Context) ([]string, error) {
	query :=
		`SELECT secret FROM users
		 WHERE secret IS NOT NULL
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	secrets := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		secrets = append(secrets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return secrets, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	var (
		user                             models.User
		userName, passwordHash, external sql.NullString
		secret                           sql.NullString
	)

	err := row.Scan(&user.ID, &userName, &passwordHash, &external, &secret, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.UserName = userName.String
	user.PasswordHash = passwordHash.String
	user.ExternalID = external.String
	if secret.Valid {
		s := secret.String
		user.Secret = &s
	}

	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

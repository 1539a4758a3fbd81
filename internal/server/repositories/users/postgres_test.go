package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

var userColumns = []string{"id", "username", "password_hash", "external_id", "secret", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("alice", "$2a$10$hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("u-1", now, now))

	got, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "$2a$10$hash"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.UserName != "alice" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("alice", "h").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "h"})
	if !errors.Is(err, common.ErrDuplicateUsername) {
		t.Fatalf("want ErrDuplicateUsername, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("alice", "h").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", PasswordHash: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, common.ErrDuplicateUsername) {
		t.Fatalf("generic failure must not look like a duplicate")
	}
}

func TestGetUserByLogin_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*external_id,\s*secret,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-1", "alice", "hash", nil, "cats", now, now))

	got, err := repo.GetUserByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserByLogin error: %v", err)
	}
	if got.ID != "u-1" || got.PasswordHash != "hash" || got.ExternalID != "" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.Secret == nil || *got.Secret != "cats" {
		t.Fatalf("unexpected secret: %v", got.Secret)
	}
}

func TestGetUserByLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT.+FROM\s+users\s+WHERE\s+username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT.+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-2", nil, nil, "google-42", nil, now, now))

	got, err := repo.GetByID(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.UserName != "" || got.ExternalID != "google-42" || got.Secret != nil || got.HasPassword() {
		t.Fatalf("unexpected user: %+v", got)
	}

	mock.ExpectQuery(`SELECT.+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-3").
		WillReturnError(errors.New("db err"))

	_, err = repo.GetByID(context.Background(), "u-3")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindOrCreateByExternalID_IsSingleUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(external_id\)\s*VALUES\s*\(\$1\)\s*ON\s+CONFLICT\s*\(external_id\)\s*DO\s+UPDATE\s+SET\s+updated_at\s*=\s*now\(\)\s*RETURNING\s+id,\s*username,\s*password_hash,\s*external_id,\s*secret,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("google-42").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u-9", nil, nil, "google-42", nil, now, now))

	got, err := repo.FindOrCreateByExternalID(context.Background(), "google-42")
	if err != nil {
		t.Fatalf("FindOrCreateByExternalID error: %v", err)
	}
	if got.ID != "u-9" || got.ExternalID != "google-42" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("only one statement expected: %v", err)
	}
}

func TestUpdateSecret(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+secret\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs("u-1", "cats").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateSecret(context.Background(), "u-1", "cats"); err != nil {
		t.Fatalf("UpdateSecret error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("gone", "cats").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateSecret(context.Background(), "gone", "cats"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	mock.ExpectExec(q).WithArgs("u-1", "dogs").WillReturnError(errors.New("db down"))
	if err := repo.UpdateSecret(context.Background(), "u-1", "dogs"); err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListSecrets(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+secret\s+FROM\s+users\s+WHERE\s+secret\s+IS\s+NOT\s+NULL\s+ORDER\s+BY\s+created_at\s*$`

	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"secret"}).AddRow("cats").AddRow("dogs"))

	got, err := repo.ListSecrets(context.Background())
	if err != nil {
		t.Fatalf("ListSecrets error: %v", err)
	}
	if len(got) != 2 || got[0] != "cats" || got[1] != "dogs" {
		t.Fatalf("unexpected secrets: %v", got)
	}

	mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"secret"}))
	got, err = repo.ListSecrets(context.Background())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %v, %v", got, err)
	}

	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))
	if _, err := repo.ListSecrets(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

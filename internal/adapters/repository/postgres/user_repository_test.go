package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/codex-company-registration/internal/core/user"
)

func TestScanUser_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	if _, err := scanUser(row); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTranslateUserPgError(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: usersSubjectConstraint}
	if !errors.Is(translateUserPgError(pgErr), user.ErrSubjectAlreadyExists) {
		t.Fatalf("expected subject already exists error mapping")
	}

	otherErr := errors.New("random")
	if translateUserPgError(otherErr) != otherErr {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestUserRepository_Create(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (subject, username, created_at)`)).
		WithArgs("sub-1", "alice", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "username", "created_at"}).
			AddRow("user-1", "sub-1", "alice", now))

	created, err := repo.Create(context.Background(), &user.User{Subject: "sub-1", Username: "alice", CreatedAt: now})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "user-1" {
		t.Fatalf("unexpected user %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindBySubject(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewUserRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE subject = $1`)).
		WithArgs("sub-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "username", "created_at"}).
			AddRow("user-1", "sub-1", "alice", now))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE subject = $1`)).
		WithArgs("sub-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "username", "created_at"}))

	found, err := repo.FindBySubject(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("FindBySubject returned error: %v", err)
	}
	if found.Username != "alice" {
		t.Fatalf("unexpected user %+v", found)
	}

	if _, err := repo.FindBySubject(context.Background(), "sub-2"); !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

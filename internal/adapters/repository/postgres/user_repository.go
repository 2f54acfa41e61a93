package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-company-registration/internal/core/user"
	pgdb "github.com/ogurasousui/codex-company-registration/internal/platform/db/postgres"
)

// UserRepository は PostgreSQL を利用した申請者永続化の実装です。
type UserRepository struct {
	pool pgdb.Queryer
}

// NewUserRepository は UserRepository を生成します。
func NewUserRepository(pool pgdb.Queryer) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create は申請者を新規作成します。
func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO users (subject, username, created_at)
        VALUES ($1, $2, $3)
        RETURNING id, subject, username, created_at
    `, u.Subject, u.Username, u.CreatedAt)

	created, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return created, nil
}

// FindByID は ID で申請者を取得します。
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, subject, username, created_at
          FROM users
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

// FindBySubject は外部 ID で申請者を取得します。
func (r *UserRepository) FindBySubject(ctx context.Context, subject string) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, subject, username, created_at
          FROM users
         WHERE subject = $1
         LIMIT 1
    `, subject)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id, subject, username string
		createdAt             time.Time
	)

	if err := row.Scan(&id, &subject, &username, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}

	return &user.User{
		ID:        id,
		Subject:   subject,
		Username:  username,
		CreatedAt: createdAt,
	}, nil
}

func translateUserPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if pgErr.ConstraintName == usersSubjectConstraint {
				return user.ErrSubjectAlreadyExists
			}
		case invalidTextReprCode:
			return user.ErrUserNotFound
		}
	}
	return err
}

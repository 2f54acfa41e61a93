package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	pgdb "github.com/ogurasousui/codex-company-registration/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	invalidTextReprCode     = "22P02"

	companiesOwnerConstraint     = "companies_owner_id_key"
	companiesEmailConstraint     = "companies_email_key"
	companiesOwnerFKConstraint   = "companies_owner_id_fkey"
	documentsCompanyConstraint   = "documents_company_id_fkey"
	documentsObjectKeyConstraint = "documents_object_key_key"
	usersSubjectConstraint       = "users_subject_key"
)

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
// version 列による楽観ロックで同一会社への更新を直列化します。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO companies (owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
        RETURNING id, owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at
    `, c.OwnerID, c.Name, c.Email, c.Goal, c.Headquarters, c.Executives, string(c.State), nullableString(c.TaxID), c.CreatedAt, c.UpdatedAt)

	created, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return created, nil
}

// Update は version が expectedVersion と一致する場合に限り会社情報を更新し、version を 1 進めます。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company, expectedVersion int64) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE companies
           SET name = $1,
               email = $2,
               goal = $3,
               headquarters = $4,
               executives = $5,
               state = $6,
               tax_id = $7,
               updated_at = $8,
               version = version + 1
         WHERE id = $9
           AND version = $10
        RETURNING id, owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at
    `, c.Name, c.Email, c.Goal, c.Headquarters, c.Executives, string(c.State), nullableString(c.TaxID), c.UpdatedAt, c.ID, expectedVersion)

	updated, err := scanCompany(row)
	if errors.Is(err, company.ErrCompanyNotFound) {
		return nil, r.missOrConflict(ctx, exec, c.ID)
	}
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return updated, nil
}

// Delete は version が expectedVersion と一致する場合に限り会社を削除します。
// 添付書類が残っている場合は外部キー制約により ErrVersionConflict を返します。
func (r *CompanyRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM companies WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return translateCompanyPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, exec, id)
	}
	return nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at
          FROM companies
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// FindByOwner は申請者 ID で会社を取得します。
func (r *CompanyRepository) FindByOwner(ctx context.Context, ownerID string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at
          FROM companies
         WHERE owner_id = $1
         LIMIT 1
    `, ownerID)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// ListByState は指定状態の会社を作成日時の古い順に取得します。
func (r *CompanyRepository) ListByState(ctx context.Context, filter company.ListFilter) ([]*company.Company, string, error) {
	if filter.Limit <= 0 {
		return nil, "", company.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", company.ErrInvalidPageToken
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, owner_id, name, email, goal, headquarters, executives, state, tax_id, version, created_at, updated_at
          FROM companies
         WHERE state = $1
         ORDER BY created_at ASC, id ASC
         LIMIT $2
        OFFSET $3
    `, string(filter.State), filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", translateCompanyPgError(err)
	}
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		found, err := scanCompany(rows)
		if err != nil {
			return nil, "", translateCompanyPgError(err)
		}
		companies = append(companies, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateCompanyPgError(err)
	}

	var nextToken string
	if len(companies) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		companies = companies[:filter.Limit]
	}

	return companies, nextToken, nil
}

// missOrConflict は条件付き書き込みが 0 件だった理由を、行の有無で判別します。
func (r *CompanyRepository) missOrConflict(ctx context.Context, exec pgdb.Queryer, id string) error {
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, id).Scan(&exists); err != nil {
		return translateCompanyPgError(err)
	}
	if !exists {
		return company.ErrCompanyNotFound
	}
	return company.ErrVersionConflict
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		id, ownerID                     string
		name, email, goal               string
		headquarters, executives, state string
		taxID                           sql.NullString
		version                         int64
		createdAt, updatedAt            time.Time
	)

	if err := row.Scan(&id, &ownerID, &name, &email, &goal, &headquarters, &executives, &state, &taxID, &version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}

	var taxIDPtr *string
	if taxID.Valid {
		value := taxID.String
		taxIDPtr = &value
	}

	return &company.Company{
		ID:           id,
		OwnerID:      ownerID,
		Name:         name,
		Email:        email,
		Goal:         goal,
		Headquarters: headquarters,
		Executives:   executives,
		State:        company.State(state),
		TaxID:        taxIDPtr,
		Version:      version,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func translateCompanyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			switch pgErr.ConstraintName {
			case companiesOwnerConstraint:
				return company.ErrAlreadyRegistered
			case companiesEmailConstraint:
				return company.ErrEmailAlreadyUsed
			}
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case documentsCompanyConstraint:
				return company.ErrVersionConflict
			case companiesOwnerFKConstraint:
				return company.ErrInvalidOwner
			}
		case invalidTextReprCode:
			return company.ErrCompanyNotFound
		}
	}
	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

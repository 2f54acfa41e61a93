package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	pgdb "github.com/ogurasousui/codex-company-registration/internal/platform/db/postgres"
)

// ErrDuplicateObjectKey はオブジェクトキーが既に使われている場合に返却されます。
var ErrDuplicateObjectKey = errors.New("object key already exists")

// DocumentRepository は PostgreSQL を利用したドキュメントメタデータ永続化の実装です。
type DocumentRepository struct {
	pool pgdb.Queryer
}

// NewDocumentRepository は DocumentRepository を生成します。
func NewDocumentRepository(pool pgdb.Queryer) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create はドキュメントを新規作成します。親の会社が存在しない場合は company.ErrCompanyNotFound を返します。
func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO documents (company_id, object_key, filename, content_type, size, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, company_id, object_key, filename, content_type, size, uploaded_at
    `, d.CompanyID, d.ObjectKey, d.Filename, d.ContentType, d.Size, d.UploadedAt)

	created, err := scanDocument(row)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return created, nil
}

// FindByID は ID でドキュメントを取得します。
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, company_id, object_key, filename, content_type, size, uploaded_at
          FROM documents
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanDocument(row)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return found, nil
}

// ListByCompany は会社のドキュメントをアップロード順に取得します。
func (r *DocumentRepository) ListByCompany(ctx context.Context, companyID string) ([]*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, company_id, object_key, filename, content_type, size, uploaded_at
          FROM documents
         WHERE company_id = $1
         ORDER BY uploaded_at ASC, id ASC
    `, companyID)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		found, err := scanDocument(rows)
		if err != nil {
			return nil, translateDocumentPgError(err)
		}
		docs = append(docs, found)
	}

	if err := rows.Err(); err != nil {
		return nil, translateDocumentPgError(err)
	}
	return docs, nil
}

// Delete はドキュメントを削除します。
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return translateDocumentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrDocumentNotFound
	}
	return nil
}

// DeleteByCompany は会社の全ドキュメントを削除し、削除件数を返します。
func (r *DocumentRepository) DeleteByCompany(ctx context.Context, companyID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM documents WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, translateDocumentPgError(err)
	}
	return tag.RowsAffected(), nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		id, companyID, objectKey string
		filename, contentType    string
		size                     int64
		uploadedAt               time.Time
	)

	if err := row.Scan(&id, &companyID, &objectKey, &filename, &contentType, &size, &uploadedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, err
	}

	return &document.Document{
		ID:          id,
		CompanyID:   companyID,
		ObjectKey:   objectKey,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  uploadedAt,
	}, nil
}

func translateDocumentPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if pgErr.ConstraintName == documentsObjectKeyConstraint {
				return ErrDuplicateObjectKey
			}
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == documentsCompanyConstraint {
				return company.ErrCompanyNotFound
			}
		case invalidTextReprCode:
			return document.ErrDocumentNotFound
		}
	}
	return err
}

package document

import (
	"context"
	"io"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
)

// Repository はドキュメントメタデータの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, doc *Document) (*Document, error)
	FindByID(ctx context.Context, id string) (*Document, error)
	ListByCompany(ctx context.Context, companyID string) ([]*Document, error)
	Delete(ctx context.Context, id string) error
	DeleteByCompany(ctx context.Context, companyID string) (int64, error)
}

// BlobStore はキーで参照するオブジェクトストレージです。
// Get と Delete は対象が存在しない場合に ErrBlobNotFound を返します。
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// CompanyFinder は親となる会社を参照します。
type CompanyFinder interface {
	FindByID(ctx context.Context, id string) (*company.Company, error)
}

// Scope は呼び出し元がドキュメントを参照できるかを判定します。
// 参照できない場合は呼び出し元に返すべきエラーを返します。
type Scope interface {
	AuthorizeDocument(ctx context.Context, doc *Document) error
}

// ScopeFunc は関数を Scope として扱います。
type ScopeFunc func(ctx context.Context, doc *Document) error

// AuthorizeDocument は f を呼び出します。
func (f ScopeFunc) AuthorizeDocument(ctx context.Context, doc *Document) error {
	return f(ctx, doc)
}

package registration

import (
	"context"

	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/core/user"
)

// IdentityResolver は認証済みの呼び出し元を申請者の安定した ID に解決します。
type IdentityResolver interface {
	ResolveOwner(ctx context.Context, id user.Identity) (*user.User, error)
}

// Documents は添付書類のライフサイクルを扱います。
type Documents interface {
	Upload(ctx context.Context, companyID string, files []document.File) ([]document.UploadOutcome, error)
	ListByCompany(ctx context.Context, companyID string) ([]*document.Document, error)
	Download(ctx context.Context, scope document.Scope, documentID string) (*document.Download, error)
	Delete(ctx context.Context, scope document.Scope, documentID string) error
}

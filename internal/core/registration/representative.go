package registration

import (
	"context"

	"github.com/ogurasousui/codex-company-registration/internal/core/access"
	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
	"github.com/ogurasousui/codex-company-registration/internal/core/user"
)

// Representative は会社の代表者が自分の申請に対して行う操作です。
// 全ての操作は呼び出し元を所有者 ID に解決し、対象の所有者であることを確認してから実行します。
type Representative struct {
	identities IdentityResolver
	lifecycle  company.UseCase
	docs       Documents
	guard      *access.Guard
}

// NewRepresentative は Representative を生成します。
func NewRepresentative(identities IdentityResolver, lifecycle company.UseCase, docs Documents, guard *access.Guard) *Representative {
	return &Representative{identities: identities, lifecycle: lifecycle, docs: docs, guard: guard}
}

// Register は呼び出し元を所有者とする申請を作成します。
func (r *Representative) Register(ctx context.Context, caller user.Identity, details company.Details) (*company.Company, error) {
	owner, err := r.identities.ResolveOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	return r.lifecycle.Register(ctx, company.RegisterInput{OwnerID: owner.ID, Details: details})
}

// MyRegistration は呼び出し元の申請を返します。
func (r *Representative) MyRegistration(ctx context.Context, caller user.Identity) (*company.Company, error) {
	owner, err := r.identities.ResolveOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	return r.lifecycle.GetByOwner(ctx, owner.ID)
}

// Update は申請内容を更新します。
func (r *Representative) Update(ctx context.Context, caller user.Identity, companyID string, details company.Details) (*company.Company, error) {
	if _, err := r.ownCompany(ctx, caller, companyID); err != nil {
		return nil, err
	}
	return r.lifecycle.Update(ctx, company.UpdateInput{ID: companyID, Details: details})
}

// Withdraw は申請を添付書類ごと取り下げます。
func (r *Representative) Withdraw(ctx context.Context, caller user.Identity, companyID string) (*company.WithdrawResult, error) {
	if _, err := r.ownCompany(ctx, caller, companyID); err != nil {
		return nil, err
	}
	return r.lifecycle.Withdraw(ctx, company.WithdrawInput{ID: companyID})
}

// Upload は申請に書類を添付します。
func (r *Representative) Upload(ctx context.Context, caller user.Identity, companyID string, files []document.File) ([]document.UploadOutcome, error) {
	if _, err := r.ownCompany(ctx, caller, companyID); err != nil {
		return nil, err
	}
	return r.docs.Upload(ctx, companyID, files)
}

// Documents は申請に添付された書類を返します。
func (r *Representative) Documents(ctx context.Context, caller user.Identity, companyID string) ([]*document.Document, error) {
	if _, err := r.ownCompany(ctx, caller, companyID); err != nil {
		return nil, err
	}
	return r.docs.ListByCompany(ctx, companyID)
}

// Download は自分の申請に添付された書類を取得します。
func (r *Representative) Download(ctx context.Context, caller user.Identity, documentID string) (*document.Download, error) {
	owner, err := r.identities.ResolveOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	return r.docs.Download(ctx, r.guard.OwnerScope(owner.ID), documentID)
}

// DeleteDocument は自分の申請に添付された書類を削除します。
func (r *Representative) DeleteDocument(ctx context.Context, caller user.Identity, documentID string) error {
	owner, err := r.identities.ResolveOwner(ctx, caller)
	if err != nil {
		return err
	}
	return r.docs.Delete(ctx, r.guard.OwnerScope(owner.ID), documentID)
}

func (r *Representative) ownCompany(ctx context.Context, caller user.Identity, companyID string) (*company.Company, error) {
	owner, err := r.identities.ResolveOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	c, err := r.lifecycle.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := r.guard.RequireOwner(owner.ID, c); err != nil {
		return nil, err
	}
	return c, nil
}

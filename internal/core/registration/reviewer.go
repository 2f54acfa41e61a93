package registration

import (
	"context"

	"github.com/ogurasousui/codex-company-registration/internal/core/access"
	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
)

// Reviewer は審査担当者が行う操作です。審査担当者は全ての申請を参照できます。
type Reviewer struct {
	lifecycle company.UseCase
	docs      Documents
	guard     *access.Guard
}

// NewReviewer は Reviewer を生成します。
func NewReviewer(lifecycle company.UseCase, docs Documents, guard *access.Guard) *Reviewer {
	return &Reviewer{lifecycle: lifecycle, docs: docs, guard: guard}
}

// Pending は審査待ちの申請を古い順に返します。
func (r *Reviewer) Pending(ctx context.Context, pageSize int, pageToken string) (*company.ListResult, error) {
	return r.List(ctx, company.ListInput{State: company.StatePending, PageSize: pageSize, PageToken: pageToken})
}

// List は指定状態の申請を返します。
func (r *Reviewer) List(ctx context.Context, in company.ListInput) (*company.ListResult, error) {
	return r.lifecycle.ListByState(ctx, in)
}

// Company は申請を返します。
func (r *Reviewer) Company(ctx context.Context, companyID string) (*company.Company, error) {
	return r.lifecycle.GetCompany(ctx, companyID)
}

// Decide は申請を承認または却下します。
func (r *Reviewer) Decide(ctx context.Context, companyID string, decision company.Decision) (*company.Company, error) {
	return r.lifecycle.Decide(ctx, company.DecideInput{ID: companyID, Decision: decision})
}

// Documents は申請に添付された書類を返します。
func (r *Reviewer) Documents(ctx context.Context, companyID string) ([]*document.Document, error) {
	return r.docs.ListByCompany(ctx, companyID)
}

// Download は申請に添付された書類を取得します。
// 書類が指定の申請に属さない場合は存在しないものとして扱います。
func (r *Reviewer) Download(ctx context.Context, companyID, documentID string) (*document.Download, error) {
	return r.docs.Download(ctx, r.guard.ReviewScope(companyID), documentID)
}

package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
	"github.com/ogurasousui/codex-company-registration/internal/core/document"
)

// ErrForbidden は呼び出し元が対象の所有者でない場合に返却されます。
var ErrForbidden = errors.New("forbidden")

// Guard は所有者と審査担当者の参照範囲を判定します。
//
// 所有者向けの判定は対象の存在を明かした上で ErrForbidden を返し、
// 審査担当者向けの判定は親子関係の不一致を document.ErrDocumentNotFound として扱い存在を隠します。
type Guard struct {
	companies document.CompanyFinder
}

// NewGuard は Guard を生成します。
func NewGuard(companies document.CompanyFinder) *Guard {
	return &Guard{companies: companies}
}

// RequireOwner は callerID が会社の所有者であることを確認します。
func (g *Guard) RequireOwner(callerID string, c *company.Company) error {
	if c == nil || callerID == "" || c.OwnerID != callerID {
		return ErrForbidden
	}
	return nil
}

// RequireOwnerOfDocument はドキュメントの親会社の所有者が callerID であることを確認します。
func (g *Guard) RequireOwnerOfDocument(ctx context.Context, callerID string, doc *document.Document) error {
	parent, err := g.companies.FindByID(ctx, doc.CompanyID)
	if err != nil {
		return fmt.Errorf("parent of document %s: %w", doc.ID, err)
	}
	return g.RequireOwner(callerID, parent)
}

// ResolveForReview はドキュメントが指定の会社に属することを確認します。
func (g *Guard) ResolveForReview(companyID string, doc *document.Document) error {
	if doc == nil || doc.CompanyID != companyID {
		return document.ErrDocumentNotFound
	}
	return nil
}

// OwnerScope は所有者として書類を参照する Scope を返します。
func (g *Guard) OwnerScope(callerID string) document.Scope {
	return document.ScopeFunc(func(ctx context.Context, doc *document.Document) error {
		return g.RequireOwnerOfDocument(ctx, callerID, doc)
	})
}

// ReviewScope は審査担当者として会社の書類を参照する Scope を返します。
func (g *Guard) ReviewScope(companyID string) document.Scope {
	return document.ScopeFunc(func(_ context.Context, doc *document.Document) error {
		return g.ResolveForReview(companyID, doc)
	})
}

package company

import "context"

// Repository は会社エンティティの永続化を行うインターフェースです。
// Update と Delete は expectedVersion が保存済みの値と一致する場合のみ成功し、
// 一致しなければ ErrVersionConflict を返します。
type Repository interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Update(ctx context.Context, company *Company, expectedVersion int64) (*Company, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
	FindByID(ctx context.Context, id string) (*Company, error)
	FindByOwner(ctx context.Context, ownerID string) (*Company, error)
	ListByState(ctx context.Context, filter ListFilter) ([]*Company, string, error)
}

// ListFilter は一覧取得時の検索条件を表します。
type ListFilter struct {
	State  State
	Limit  int
	Offset int
}

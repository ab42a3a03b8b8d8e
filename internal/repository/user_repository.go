package repository

import (
	"context"

	"app/internal/domain/model"
)

type ListSellersFilter struct {
	Page   int
	Limit  int
	Status string
}

type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	Create(ctx context.Context, u model.User) (int64, error)
	Update(ctx context.Context, u model.User) error

	//管理者用：出品者一覧（審査状態で絞り込み）
	ListSellers(ctx context.Context, f ListSellersFilter) ([]model.User, int64, error)
	UpdateSellerStatus(ctx context.Context, userID int64, status model.SellerStatus) error
}

package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type ListProductsFilter struct {
	Page     int
	Limit    int
	Q        string
	SellerID *int64
	Status   string
	Sort     string
}

type ProductRepository interface {
	FindByID(ctx context.Context, productID int64) (model.Product, error)
	Create(ctx context.Context, p model.Product) (int64, error)
	Update(ctx context.Context, p model.Product) error
	UpdateStatus(ctx context.Context, productID int64, status model.ProductStatus) error

	//公開一覧（有効かつ承認済みのみ）
	ListPublic(ctx context.Context, f ListProductsFilter) ([]model.Product, int64, error)

	//出品者・管理者用の一覧（状態で絞り込み可）
	List(ctx context.Context, f ListProductsFilter) ([]model.Product, int64, error)
}

package repository

import (
	"context"

	"app/internal/domain/model"
)

type VariantRepository interface {
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	Create(ctx context.Context, v model.ProductVariant) (int64, error)
	Update(ctx context.Context, v model.ProductVariant) error

	//チェックアウト用のロック付き読み（SELECT ... FOR UPDATE）。
	//同じvariantを触る同時注文はここで直列化される。idはソートして取得する。
	ListByIDsForUpdate(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error)
}

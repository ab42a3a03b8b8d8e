package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page    int
	Limit   int
	Status  string
	BuyerID *int64
	From    *time.Time
	To      *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByBuyerID(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//同じbuyer+keyなら同じ注文を返す
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error)

	//出品者用：自分の明細を含む注文一覧
	ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}

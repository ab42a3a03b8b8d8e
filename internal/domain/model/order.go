package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPacked    OrderStatus = "PACKED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

type Order struct {
	ID      int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID int64       `gorm:"not null;index;uniqueIndex:idx_orders_buyer_idem_key" json:"buyer_id"`
	Status  OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//確定時点の正価から計算した合計
	TotalCents int64 `gorm:"not null" json:"total_cents"`

	//配送先スナップショット（JSON文字列のまま保存）
	ShippingAddressJSON string `gorm:"type:text;not null" json:"-"`

	//二重送信防止キー（同じbuyer+keyは同じ注文）
	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_buyer_idem_key" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

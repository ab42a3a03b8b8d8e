package model

import "time"

// 注文明細。作成後は変更しない（価格・SKUはスナップショット）
type OrderItem struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64     `gorm:"not null;index" json:"order_id"`
	ProductID      int64     `gorm:"not null;index" json:"product_id"`
	VariantID      int64     `gorm:"not null;index" json:"variant_id"`
	SellerID       int64     `gorm:"not null;index" json:"seller_id"`
	SKUSnapshot    string    `gorm:"type:varchar(100);not null" json:"sku_snapshot"`
	UnitPriceCents int64     `gorm:"not null" json:"unit_price_cents"`
	Qty            int64     `gorm:"not null" json:"qty"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

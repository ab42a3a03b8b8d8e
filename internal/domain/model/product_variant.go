package model

import "time"

// SKU単位の購入単位。価格・在庫はここが正
type ProductVariant struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64     `gorm:"not null;index" json:"product_id"`
	SKU        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"sku"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	Stock      int64     `gorm:"not null;default:0" json:"stock"`
	MOQ        int64     `gorm:"not null;default:1" json:"moq"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品の審査状態（管理者モデレーション）
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusPending  ProductStatus = "PENDING"
	ProductStatusApproved ProductStatus = "APPROVED"
	ProductStatusRejected ProductStatus = "REJECTED"
)

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64          `gorm:"not null;index" json:"seller_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Status      ProductStatus  `gorm:"type:varchar(20);not null;index;default:'DRAFT'" json:"status"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 購入できるのは「有効かつ承認済み」の商品だけ
func (p Product) Purchasable() bool {
	return p.IsActive && p.Status == ProductStatusApproved
}

package model

import "time"

//在庫調整の履歴（補充・キャンセル戻しなど）

type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VariantID   int64     `gorm:"not null;index" json:"variant_id"`
	ActorUserID int64     `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

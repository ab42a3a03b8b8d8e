package model

import "time"

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// 出品者の審査状態。BUYERは空のまま。
type SellerStatus string

const (
	SellerStatusPending   SellerStatus = "PENDING"
	SellerStatusApproved  SellerStatus = "APPROVED"
	SellerStatusSuspended SellerStatus = "SUSPENDED"
)

// 認証は外部IDプロバイダに任せる。ここはプロフィールと権限だけ持つ。
type User struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	CompanyName  string       `gorm:"type:varchar(255)" json:"company_name"`
	Role         Role         `gorm:"type:varchar(20);not null;default:'BUYER'" json:"role"`
	SellerStatus SellerStatus `gorm:"type:varchar(20);index" json:"seller_status,omitempty"`
	IsActive     bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) FindByID(ctx context.Context, userID int64) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, repo.ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *UserGormRepository) Create(ctx context.Context, u model.User) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (r *UserGormRepository) Update(ctx context.Context, u model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"company_name":  u.CompanyName,
			"role":          u.Role,
			"seller_status": u.SellerStatus,
			"is_active":     u.IsActive,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *UserGormRepository) ListSellers(ctx context.Context, f repo.ListSellersFilter) ([]model.User, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.User{}).
		Where("role = ?", model.RoleSeller)

	if f.Status != "" {
		q = q.Where("seller_status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	var items []model.User
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.User{}, 0, err
	}

	return items, total, nil
}

func (r *UserGormRepository) UpdateSellerStatus(ctx context.Context, userID int64, status model.SellerStatus) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND role = ?", userID, model.RoleSeller).
		Update("seller_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

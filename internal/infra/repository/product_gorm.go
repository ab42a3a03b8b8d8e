package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"is_active":   p.IsActive,
			"status":      p.Status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) UpdateStatus(ctx context.Context, productID int64, status model.ProductStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 公開一覧は有効かつ承認済みだけ
func (r *ProductGormRepository) ListPublic(ctx context.Context, f repo.ListProductsFilter) ([]model.Product, int64, error) {
	f.Status = string(model.ProductStatusApproved)
	q := r.buildListQuery(ctx, f).Where("is_active = ?", true)
	return r.runListQuery(q, f)
}

func (r *ProductGormRepository) List(ctx context.Context, f repo.ListProductsFilter) ([]model.Product, int64, error) {
	q := r.buildListQuery(ctx, f)
	return r.runListQuery(q, f)
}

func (r *ProductGormRepository) buildListQuery(ctx context.Context, f repo.ListProductsFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Product{})

	if f.Q != "" {
		q = q.Where("name ILIKE ?", "%"+f.Q+"%")
	}
	if f.SellerID != nil {
		q = q.Where("seller_id = ?", *f.SellerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

func (r *ProductGormRepository) runListQuery(q *gorm.DB, f repo.ListProductsFilter) ([]model.Product, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	order := "id desc"
	if f.Sort == "name" {
		order = "name asc"
	}

	var items []model.Product
	offset := (f.Page - 1) * f.Limit
	if err := q.Order(order).Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return items, total, nil
}

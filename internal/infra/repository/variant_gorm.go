package repository

import (
	"context"
	"errors"
	"sort"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VariantGormRepository struct {
	db *gorm.DB
}

func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).Where("id = ?", variantID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

func (r *VariantGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	var vs []model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id asc").
		Find(&vs).Error
	if err != nil {
		return []model.ProductVariant{}, err
	}
	return vs, nil
}

func (r *VariantGormRepository) Create(ctx context.Context, v model.ProductVariant) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return 0, err
	}
	return v.ID, nil
}

func (r *VariantGormRepository) Update(ctx context.Context, v model.ProductVariant) error {
	res := r.db.WithContext(ctx).Model(&model.ProductVariant{}).
		Where("id = ?", v.ID).
		Updates(map[string]any{
			"sku":         v.SKU,
			"price_cents": v.PriceCents,
			"moq":         v.MOQ,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// SELECT ... FOR UPDATE。トランザクション内で呼ぶこと。
// id昇順で取得してロック順を固定し、注文同士のデッドロックを避ける。
func (r *VariantGormRepository) ListByIDsForUpdate(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	if len(variantIDs) == 0 {
		return []model.ProductVariant{}, nil
	}

	ids := make([]int64, len(variantIDs))
	copy(ids, variantIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var vs []model.ProductVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&vs).Error
	if err != nil {
		return []model.ProductVariant{}, err
	}
	return vs, nil
}

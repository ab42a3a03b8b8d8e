package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCatalogUsecase(products *ProductRepoMock, variants *VariantRepoMock) *usecase.CatalogUsecase {
	//cacheはnilでも動く
	return usecase.NewCatalogUsecase(products, variants, nil)
}

func TestListPublicProducts(t *testing.T) {
	products := &ProductRepoMock{}
	variants := &VariantRepoMock{}
	uc := newCatalogUsecase(products, variants)

	products.On("ListPublic", mock.Anything, mock.MatchedBy(func(f repo.ListProductsFilter) bool {
		return f.Page == 1 && f.Limit == 20 && f.Q == "widget"
	})).Return([]model.Product{approvedProduct(100, 7)}, int64(1), nil)

	out, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Q: "widget"})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "bulk widgets", out.Items[0].Name)
}

func TestGetProductDetail(t *testing.T) {
	products := &ProductRepoMock{}
	variants := &VariantRepoMock{}
	uc := newCatalogUsecase(products, variants)

	products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)
	variants.On("ListByProductID", mock.Anything, int64(100)).
		Return([]model.ProductVariant{variant(10, 100, 10000, 5)}, nil)

	out, err := uc.GetProductDetail(context.Background(), 100)

	assert.NoError(t, err)
	assert.Equal(t, int64(100), out.ID)
	assert.Len(t, out.Variants, 1)
	assert.Equal(t, int64(10000), out.Variants[0].PriceCents)
}

func TestGetProductDetail_NotFound(t *testing.T) {
	products := &ProductRepoMock{}
	variants := &VariantRepoMock{}
	uc := newCatalogUsecase(products, variants)

	products.On("FindByID", mock.Anything, int64(999)).
		Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.GetProductDetail(context.Background(), 999)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

// 未承認の商品は公開カタログでは存在しない扱い
func TestGetProductDetail_Unapproved(t *testing.T) {
	products := &ProductRepoMock{}
	variants := &VariantRepoMock{}
	uc := newCatalogUsecase(products, variants)

	p := approvedProduct(100, 7)
	p.IsActive = false
	products.On("FindByID", mock.Anything, int64(100)).Return(p, nil)

	_, err := uc.GetProductDetail(context.Background(), 100)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

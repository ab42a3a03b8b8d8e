package usecase

import (
	"context"
	"encoding/json"
	"net/http"

	repo "app/internal/repository"
	"app/internal/redisx"
)

// 買い手向けの公開カタログ。読み取り専用。
type CatalogUsecase struct {
	products repo.ProductRepository
	variants repo.VariantRepository
	cache    *redisx.ProductCache //nilでも動く
}

func NewCatalogUsecase(products repo.ProductRepository, variants repo.VariantRepository, cache *redisx.ProductCache) *CatalogUsecase {
	return &CatalogUsecase{products: products, variants: variants, cache: cache}
}

type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

type VariantOutput struct {
	ID         int64  `json:"id"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Stock      int64  `json:"stock"`
	MOQ        int64  `json:"moq"`
}

type ProductOutput struct {
	ID          int64           `json:"id"`
	SellerID    int64           `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Variants    []VariantOutput `json:"variants,omitempty"`
}

type ProductListOutput struct {
	Items []ProductOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *CatalogUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}

	products, total, err := u.products.ListPublic(ctx, repo.ListProductsFilter{
		Page:  in.Page,
		Limit: in.Limit,
		Q:     in.Q,
		Sort:  in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]ProductOutput, 0, len(products))
	for _, p := range products {
		items = append(items, ProductOutput{
			ID:          p.ID,
			SellerID:    p.SellerID,
			Name:        p.Name,
			Description: p.Description,
		})
	}

	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 詳細はvariant込み。redisに短TTLで置く。
// ここの価格・在庫は表示用で、注文時はトランザクション内で読み直す。
func (u *CatalogUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if b, ok := u.cache.GetDetail(ctx, productID); ok {
		var out ProductOutput
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
	}

	p, err := u.products.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.Purchasable() {
		//未承認・無効の商品は公開しない
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	vs, err := u.variants.ListByProductID(ctx, productID)
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := ProductOutput{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Variants:    make([]VariantOutput, 0, len(vs)),
	}
	for _, v := range vs {
		out.Variants = append(out.Variants, VariantOutput{
			ID:         v.ID,
			SKU:        v.SKU,
			PriceCents: v.PriceCents,
			Stock:      v.Stock,
			MOQ:        v.MOQ,
		})
	}

	if b, err := json.Marshal(out); err == nil {
		u.cache.SetDetail(ctx, productID, b)
	}

	return out, nil
}

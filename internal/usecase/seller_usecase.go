package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/redisx"
	repo "app/internal/repository"
)

// 出品者ダッシュボード。商品・variant・在庫の管理と受注の参照。
type SellerUsecase struct {
	tx    repo.TransactionManager
	cache *redisx.ProductCache
}

func NewSellerUsecase(tx repo.TransactionManager, cache *redisx.ProductCache) *SellerUsecase {
	return &SellerUsecase{tx: tx, cache: cache}
}

type ProductCreateInput struct {
	Name        string
	Description string
	IsActive    bool
}

type ProductUpdateInput struct {
	Name        string
	Description string
	IsActive    bool
}

type VariantCreateInput struct {
	SKU        string
	PriceCents int64
	Stock      int64
	MOQ        int64
}

type VariantUpdateInput struct {
	SKU        string
	PriceCents int64
	MOQ        int64
}

type StockUpdateInput struct {
	Stock  int64
	Reason string
}

// 承認済みの出品者だけが商品を触れる
func (u *SellerUsecase) requireApprovedSeller(ctx context.Context, r repo.TxRepos, sellerID int64) error {
	seller, err := r.Users().FindByID(ctx, sellerID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if seller.Role == model.RoleAdmin {
		return nil
	}
	if seller.Role != model.RoleSeller || seller.SellerStatus != model.SellerStatusApproved || !seller.IsActive {
		return NewHTTPError(http.StatusForbidden, "seller not approved")
	}
	return nil
}

func (u *SellerUsecase) ListMyProducts(ctx context.Context, sellerID int64, page, limit int) (ProductListOutput, error) {
	if sellerID <= 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out ProductListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		products, total, err := r.Products().List(ctx, repo.ListProductsFilter{
			Page:     page,
			Limit:    limit,
			SellerID: &sellerID,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items := make([]ProductOutput, 0, len(products))
		for _, p := range products {
			vs, err := r.Variants().ListByProductID(ctx, p.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			po := ProductOutput{
				ID:          p.ID,
				SellerID:    p.SellerID,
				Name:        p.Name,
				Description: p.Description,
			}
			for _, v := range vs {
				po.Variants = append(po.Variants, VariantOutput{
					ID:         v.ID,
					SKU:        v.SKU,
					PriceCents: v.PriceCents,
					Stock:      v.Stock,
					MOQ:        v.MOQ,
				})
			}
			items = append(items, po)
		}
		out = ProductListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

// 新規商品は審査待ち（PENDING）で作る。承認されるまで公開されない。
func (u *SellerUsecase) CreateProduct(ctx context.Context, sellerID int64, in ProductCreateInput) (int64, error) {
	if sellerID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid name")
	}

	var productID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := u.requireApprovedSeller(ctx, r, sellerID); err != nil {
			return err
		}

		id, err := r.Products().Create(ctx, model.Product{
			SellerID:    sellerID,
			Name:        name,
			Description: in.Description,
			Status:      model.ProductStatusPending,
			IsActive:    in.IsActive,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		productID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return productID, nil
}

func (u *SellerUsecase) UpdateProduct(ctx context.Context, sellerID int64, productID int64, in ProductUpdateInput) error {
	if sellerID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return NewHTTPError(http.StatusBadRequest, "invalid name")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := u.findOwnProduct(ctx, r, sellerID, productID)
		if err != nil {
			return err
		}

		p.Name = name
		p.Description = in.Description
		p.IsActive = in.IsActive
		if err := r.Products().Update(ctx, p); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.cache.Invalidate(ctx, productID)
	return nil
}

func (u *SellerUsecase) CreateVariant(ctx context.Context, sellerID int64, productID int64, in VariantCreateInput) (int64, error) {
	if sellerID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateVariantFields(in.SKU, in.PriceCents, in.MOQ); err != nil {
		return 0, err
	}
	if in.Stock < 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid stock")
	}

	var variantID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := u.findOwnProduct(ctx, r, sellerID, productID); err != nil {
			return err
		}

		id, err := r.Variants().Create(ctx, model.ProductVariant{
			ProductID:  productID,
			SKU:        strings.TrimSpace(in.SKU),
			PriceCents: in.PriceCents,
			Stock:      in.Stock,
			MOQ:        in.MOQ,
		})
		if err != nil {
			//SKUのunique衝突はここに落ちる
			return NewHTTPError(http.StatusConflict, "sku already exists")
		}
		variantID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	u.cache.Invalidate(ctx, productID)
	return variantID, nil
}

// 価格変更は次のチェックアウトから効く。古いカートはPRICE_MISMATCHで弾かれる。
func (u *SellerUsecase) UpdateVariant(ctx context.Context, sellerID int64, variantID int64, in VariantUpdateInput) error {
	if sellerID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateVariantFields(in.SKU, in.PriceCents, in.MOQ); err != nil {
		return err
	}

	var productID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := u.findOwnVariant(ctx, r, sellerID, variantID)
		if err != nil {
			return err
		}
		productID = v.ProductID

		v.SKU = strings.TrimSpace(in.SKU)
		v.PriceCents = in.PriceCents
		v.MOQ = in.MOQ
		if err := r.Variants().Update(ctx, v); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.cache.Invalidate(ctx, productID)
	return nil
}

// 在庫の絶対値更新（棚卸し・補充）。差分を調整履歴に残す。
func (u *SellerUsecase) UpdateStock(ctx context.Context, sellerID int64, variantID int64, in StockUpdateInput) error {
	if sellerID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	var productID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := u.findOwnVariant(ctx, r, sellerID, variantID)
		if err != nil {
			return err
		}
		productID = v.ProductID

		if err := r.Inventory().SetStock(ctx, variantID, in.Stock); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		now := time.Now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			VariantID:   variantID,
			ActorUserID: sellerID,
			Delta:       in.Stock - v.Stock,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  sellerID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceVariant,
			ResourceID:   variantID,
			BeforeJSON:   stockJSON(v.Stock),
			AfterJSON:    stockJSON(in.Stock),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.cache.Invalidate(ctx, productID)
	return nil
}

func (u *SellerUsecase) ListSellerOrders(ctx context.Context, sellerID int64, page, limit int) ([]OrderOutput, error) {
	if sellerID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListBySellerID(ctx, sellerID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// 所有チェック込みの商品取得。他人の商品は404扱い。
func (u *SellerUsecase) findOwnProduct(ctx context.Context, r repo.TxRepos, sellerID, productID int64) (model.Product, error) {
	if err := u.requireApprovedSeller(ctx, r, sellerID); err != nil {
		return model.Product{}, err
	}

	p, err := r.Products().FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if p.SellerID != sellerID {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

func (u *SellerUsecase) findOwnVariant(ctx context.Context, r repo.TxRepos, sellerID, variantID int64) (model.ProductVariant, error) {
	v, err := r.Variants().FindByID(ctx, variantID)
	if err == repo.ErrNotFound {
		return model.ProductVariant{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.ProductVariant{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if _, err := u.findOwnProduct(ctx, r, sellerID, v.ProductID); err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

func validateVariantFields(sku string, priceCents, moq int64) error {
	s := strings.TrimSpace(sku)
	if s == "" || len(s) > 100 {
		return NewHTTPError(http.StatusBadRequest, "invalid sku")
	}
	if priceCents < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	if moq <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid moq")
	}
	return nil
}

func stockJSON(stock int64) string {
	return fmt.Sprintf(`{"stock":%d}`, stock)
}

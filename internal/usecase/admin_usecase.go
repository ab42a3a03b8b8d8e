package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/redisx"
	repo "app/internal/repository"
)

// 管理者モデレーション。出品者の承認・停止、商品審査、注文の俯瞰。
type AdminUsecase struct {
	tx    repo.TransactionManager
	cache *redisx.ProductCache
}

func NewAdminUsecase(tx repo.TransactionManager, cache *redisx.ProductCache) *AdminUsecase {
	return &AdminUsecase{tx: tx, cache: cache}
}

type SellerOutput struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	CompanyName  string `json:"company_name"`
	SellerStatus string `json:"seller_status"`
	IsActive     bool   `json:"is_active"`
}

func (u *AdminUsecase) ListSellers(ctx context.Context, page, limit int, status string) ([]SellerOutput, error) {
	var outs []SellerOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		sellers, _, err := r.Users().ListSellers(ctx, repo.ListSellersFilter{
			Page:   page,
			Limit:  limit,
			Status: status,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]SellerOutput, 0, len(sellers))
		for _, s := range sellers {
			outs = append(outs, SellerOutput{
				ID:           s.ID,
				Email:        s.Email,
				CompanyName:  s.CompanyName,
				SellerStatus: string(s.SellerStatus),
				IsActive:     s.IsActive,
			})
		}
		return nil
	})
	if err != nil {
		return []SellerOutput{}, err
	}
	return outs, nil
}

// 出品者の承認・停止。監査ログを必ず残す。
func (u *AdminUsecase) UpdateSellerStatus(ctx context.Context, adminID int64, sellerID int64, status string) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if sellerID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.SellerStatus(strings.TrimSpace(status))
	switch newStatus {
	case model.SellerStatusApproved, model.SellerStatusSuspended:
		// OK
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		seller, err := r.Users().FindByID(ctx, sellerID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if seller.Role != model.RoleSeller {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := r.Users().UpdateSellerStatus(ctx, sellerID, newStatus); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionUpdateSellerStatus,
			ResourceType: model.AuditResourceSeller,
			ResourceID:   sellerID,
			BeforeJSON:   sellerStatusJSON(string(seller.SellerStatus)),
			AfterJSON:    sellerStatusJSON(string(newStatus)),
			CreatedAt:    time.Now(),
		})
	})
}

func (u *AdminUsecase) ListProducts(ctx context.Context, page, limit int, status string) (ProductListOutput, error) {
	var out ProductListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		products, total, err := r.Products().List(ctx, repo.ListProductsFilter{
			Page:   page,
			Limit:  limit,
			Status: status,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
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
		out = ProductListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

// 商品審査（承認・差し戻し）
func (u *AdminUsecase) UpdateProductStatus(ctx context.Context, adminID int64, productID int64, status string) error {
	if adminID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.ProductStatus(strings.TrimSpace(status))
	switch newStatus {
	case model.ProductStatusApproved, model.ProductStatusRejected:
		// OK
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Products().UpdateStatus(ctx, productID, newStatus); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionUpdateProductStatus,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   productStatusJSON(string(p.Status)),
			AfterJSON:    productStatusJSON(string(newStatus)),
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return err
	}

	u.cache.Invalidate(ctx, productID)
	return nil
}

// 注文一覧（管理者）
func (u *AdminUsecase) ListOrders(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

func (u *AdminUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

func sellerStatusJSON(status string) string {
	b, _ := json.Marshal(map[string]string{"seller_status": status})
	return string(b)
}

func productStatusJSON(status string) string {
	b, _ := json.Marshal(map[string]string{"status": status})
	return string(b)
}

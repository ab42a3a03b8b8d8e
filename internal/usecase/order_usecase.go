package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/event"
	"app/internal/domain/model"
	"app/internal/kafka"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// 注文の参照とステータス遷移。注文の作成はCheckoutUsecaseだけが行う。
type OrderUsecase struct {
	tx       repo.TransactionManager
	events   EventPublisher
	producer string
}

func NewOrderUsecase(tx repo.TransactionManager, events EventPublisher, producer string) *OrderUsecase {
	return &OrderUsecase{tx: tx, events: events, producer: producer}
}

type OrderItemOutput struct {
	ProductID      int64  `json:"product_id"`
	VariantID      int64  `json:"variant_id"`
	SellerID       int64  `json:"seller_id"`
	SKU            string `json:"sku"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int64  `json:"qty"`
}

type OrderOutput struct {
	ID         int64             `json:"id"`
	BuyerID    int64             `json:"buyer_id"`
	Status     string            `json:"status"`
	TotalCents int64             `json:"total_cents"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemOutput `json:"items"`
}

// ステータスの遷移表。ここに無い遷移は全部拒否。
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusConfirmed, model.OrderStatusCanceled},
	model.OrderStatusConfirmed: {model.OrderStatusPacked, model.OrderStatusCanceled},
	model.OrderStatusPacked:    {model.OrderStatusShipped},
	model.OrderStatusShipped:   {model.OrderStatusDelivered},
}

func canTransition(from, to model.OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func parseOrderStatus(s string) (model.OrderStatus, bool) {
	switch model.OrderStatus(strings.TrimSpace(s)) {
	case model.OrderStatusConfirmed:
		return model.OrderStatusConfirmed, true
	case model.OrderStatusPacked:
		return model.OrderStatusPacked, true
	case model.OrderStatusShipped:
		return model.OrderStatusShipped, true
	case model.OrderStatusDelivered:
		return model.OrderStatusDelivered, true
	case model.OrderStatusCanceled:
		return model.OrderStatusCanceled, true
	default:
		return "", false
	}
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, buyerID int64) ([]OrderOutput, error) {
	if buyerID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByBuyerID(ctx, buyerID, 1, 50)
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

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, buyerID int64, orderID int64) (OrderOutput, error) {
	if buyerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.BuyerID != buyerID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

type UpdateOrderStatusInput struct {
	Status string
}

// 出品者によるステータス更新。自分の明細を含む注文だけ触れる。
func (u *OrderUsecase) UpdateStatusAsSeller(ctx context.Context, sellerID int64, orderID int64, in UpdateOrderStatusInput) error {
	return u.updateStatus(ctx, sellerID, orderID, in, true)
}

// 管理者によるステータス更新。所有チェックなし。
func (u *OrderUsecase) UpdateStatusAsAdmin(ctx context.Context, adminID int64, orderID int64, in UpdateOrderStatusInput) error {
	return u.updateStatus(ctx, adminID, orderID, in, false)
}

func (u *OrderUsecase) updateStatus(ctx context.Context, actorID int64, orderID int64, in UpdateOrderStatusInput, checkSeller bool) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	newStatus, ok := parseOrderStatus(in.Status)
	if !ok {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var ev event.OrderStatusChangedPayload

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if checkSeller && !itemsContainSeller(items, actorID) {
			//他の出品者の注文は見せない
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if !canTransition(o.Status, newStatus) {
			return NewHTTPError(http.StatusConflict, "invalid status transition")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//キャンセルなら在庫を戻して調整履歴を残す
		if newStatus == model.OrderStatusCanceled {
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.VariantID, it.Qty); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				adj := model.InventoryAdjustment{
					VariantID:   it.VariantID,
					ActorUserID: actorID,
					Delta:       it.Qty,
					Reason:      "ORDER_CANCELED",
					CreatedAt:   time.Now(),
				}
				if err := r.Inventory().CreateAdjustment(ctx, adj); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   statusJSON(string(o.Status)),
			AfterJSON:    statusJSON(string(newStatus)),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		ev = event.OrderStatusChangedPayload{
			OrderID:     orderID,
			OldStatus:   string(o.Status),
			NewStatus:   string(newStatus),
			ActorUserID: actorID,
		}
		return nil
	})

	if err != nil {
		return err
	}

	if u.events != nil {
		u.publishStatusChanged(ev)
	}
	return nil
}

func (u *OrderUsecase) publishStatusChanged(p event.OrderStatusChangedPayload) {
	env := event.Envelope{
		EventID:      uuid.NewString(),
		EventType:    event.EventOrderStatusChanged,
		EventVersion: 1,
		OccurredAt:   time.Now(),
		Producer:     u.producer,
		Payload:      kafka.MustMarshal(p),
	}
	u.events.Publish(event.TopicOrderStatusChanged, event.PartitionKey(p.OrderID), kafka.MustMarshal(env))
}

func itemsContainSeller(items []model.OrderItem, sellerID int64) bool {
	for _, it := range items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

func statusJSON(status string) string {
	b, _ := json.Marshal(map[string]string{"status": status})
	return string(b)
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			SellerID:       it.SellerID,
			SKU:            it.SKUSnapshot,
			UnitPriceCents: it.UnitPriceCents,
			Qty:            it.Qty,
		})
	}

	return OrderOutput{
		ID:         o.ID,
		BuyerID:    o.BuyerID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
		Items:      outItems,
	}
}

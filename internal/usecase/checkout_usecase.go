package usecase

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/domain/event"
	"app/internal/domain/model"
	"app/internal/kafka"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// 注文イベントの送信先。kafka.Producerが満たす。
type EventPublisher interface {
	Publish(topic string, key, value []byte)
}

// チェックアウトの本体。検証＋注文作成＋在庫減算を1トランザクションで行う。
// 全エントリポイント（API・管理ツール）はここを経由すること。
type CheckoutUsecase struct {
	tx       repo.TransactionManager
	events   EventPublisher //nilなら送信しない
	producer string
}

func NewCheckoutUsecase(tx repo.TransactionManager, events EventPublisher, producer string) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, events: events, producer: producer}
}

type CheckoutItemInput struct {
	ProductID  int64 `json:"product_id"`
	VariantID  int64 `json:"variant_id"`
	Qty        int64 `json:"qty"`
	PriceCents int64 `json:"price_cents"`
}

type PlaceOrderInput struct {
	Items           []CheckoutItemInput
	ShippingAddress json.RawMessage
	IdempotencyKey  string
}

type CheckoutItemOutput struct {
	ProductID      int64  `json:"product_id"`
	VariantID      int64  `json:"variant_id"`
	SKU            string `json:"sku"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int64  `json:"qty"`
}

type CheckoutOutput struct {
	OrderID    int64                `json:"order_id"`
	Status     string               `json:"status"`
	TotalCents int64                `json:"total_cents"`
	Items      []CheckoutItemOutput `json:"items"`
	CreatedAt  time.Time            `json:"created_at"`
}

// PlaceOrderは注文確定。成功なら注文＋明細＋在庫減算が全部コミット済み、
// 失敗なら何もコミットされない（all-or-nothing）。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, buyerID int64, in PlaceOrderInput) (CheckoutOutput, error) {
	if buyerID <= 0 {
		return CheckoutOutput{}, &CheckoutError{Code: CheckoutCodeUnauthenticated, Message: "unauthorized"}
	}
	if err := validatePlaceOrderInput(in); err != nil {
		return CheckoutOutput{}, err
	}

	var (
		out       CheckoutOutput
		created   bool
		evPayload event.OrderCreatedPayload
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, buyerID, in.IdempotencyKey)
		if err != nil {
			return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
			}
			out = toCheckoutOutput(existing, items)
			return nil
		}

		//正の価格・在庫をロック付きで読む。
		//同じvariantへの同時チェックアウトはここで直列化される。
		variantIDs := make([]int64, 0, len(in.Items))
		for _, it := range in.Items {
			variantIDs = append(variantIDs, it.VariantID)
		}
		locked, err := r.Variants().ListByIDsForUpdate(ctx, variantIDs)
		if err != nil {
			return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
		}
		variants := make(map[int64]model.ProductVariant, len(locked))
		for _, v := range locked {
			variants[v.ID] = v
		}

		//商品の購入可否（有効・承認済み）もここで確認する
		products := make(map[int64]model.Product)

		//行単位の検証。1行でも落ちたら注文全体を作らない。
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var total int64 = 0
		now := time.Now()

		for _, it := range in.Items {
			v, ok := variants[it.VariantID]
			if !ok || v.ProductID != it.ProductID {
				return newVariantNotFound(it.VariantID)
			}

			p, ok := products[v.ProductID]
			if !ok {
				p, err = r.Products().FindByID(ctx, v.ProductID)
				if err == repo.ErrNotFound {
					return newVariantNotFound(it.VariantID)
				}
				if err != nil {
					return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
				}
				products[v.ProductID] = p
			}
			if !p.Purchasable() {
				return newVariantNotFound(it.VariantID)
			}

			//クライアントのカート価格が古いなら失敗させる（黙って正価を使わない）
			if v.PriceCents != it.PriceCents {
				return newPriceMismatch(it.VariantID, v.PriceCents, it.PriceCents)
			}

			if v.Stock < it.Qty {
				return newInsufficientStock(it.VariantID, v.Stock, it.Qty)
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:      v.ProductID,
				VariantID:      v.ID,
				SellerID:       p.SellerID,
				SKUSnapshot:    v.SKU,
				UnitPriceCents: v.PriceCents,
				Qty:            it.Qty,
				CreatedAt:      now,
			})

			//合計は正の価格から計算する
			total += v.PriceCents * it.Qty
		}

		// 注文作成
		orderID, err := r.Orders().Create(ctx, model.Order{
			BuyerID:             buyerID,
			Status:              model.OrderStatusPending,
			TotalCents:          total,
			ShippingAddressJSON: string(in.ShippingAddress),
			IdempotencyKey:      in.IdempotencyKey,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
		if err != nil {
			//同時に同じキーが入った場合はunique制約で落ちる。もう一度引いて同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, buyerID, in.IdempotencyKey)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
				}
				out = toCheckoutOutput(ex2, items2)
				return nil
			}
			return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
		}

		//在庫減算。行ロック済みだが、条件付きUPDATEで負在庫を二重に防ぐ
		for _, oi := range orderItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, oi.VariantID, oi.Qty)
			if err != nil {
				return &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "db error"}
			}
			if !ok {
				v := variants[oi.VariantID]
				return newInsufficientStock(oi.VariantID, v.Stock, oi.Qty)
			}
		}

		createdOrder := model.Order{
			ID:         orderID,
			BuyerID:    buyerID,
			Status:     model.OrderStatusPending,
			TotalCents: total,
			CreatedAt:  now,
		}
		out = toCheckoutOutput(createdOrder, orderItems)
		created = true

		evItems := make([]event.ItemLine, 0, len(orderItems))
		for _, oi := range orderItems {
			evItems = append(evItems, event.ItemLine{
				ProductID:      oi.ProductID,
				VariantID:      oi.VariantID,
				SellerID:       oi.SellerID,
				Qty:            oi.Qty,
				UnitPriceCents: oi.UnitPriceCents,
			})
		}
		evPayload = event.OrderCreatedPayload{
			OrderID:    orderID,
			BuyerID:    buyerID,
			Items:      evItems,
			TotalCents: total,
		}
		return nil
	})

	if err != nil {
		if _, ok := AsCheckoutError(err); ok {
			return CheckoutOutput{}, err
		}
		//commit自体の失敗など。rollback済みなので再試行は安全
		return CheckoutOutput{}, &CheckoutError{Code: CheckoutCodeCommitFailed, Message: "commit failed"}
	}

	//イベントはコミット後にベストエフォートで送る（トランザクションには含めない）
	if created && u.events != nil {
		u.publishOrderCreated(evPayload)
	}

	return out, nil
}

func (u *CheckoutUsecase) publishOrderCreated(p event.OrderCreatedPayload) {
	env := event.Envelope{
		EventID:      uuid.NewString(),
		EventType:    event.EventOrderCreated,
		EventVersion: 1,
		OccurredAt:   time.Now(),
		Producer:     u.producer,
		Payload:      kafka.MustMarshal(p),
	}
	u.events.Publish(event.TopicOrderCreated, event.PartitionKey(p.OrderID), kafka.MustMarshal(env))
}

func validatePlaceOrderInput(in PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return newInvalidRequest("cart is empty")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.VariantID <= 0 {
			return newInvalidRequest("invalid item reference")
		}
		if it.Qty <= 0 {
			return newInvalidRequest("qty must be positive")
		}
		if it.PriceCents < 0 {
			return newInvalidRequest("price must not be negative")
		}
	}

	//同じvariantの重複行はロック順・減算が曖昧になるので弾く
	seen := make(map[int64]bool, len(in.Items))
	for _, it := range in.Items {
		if seen[it.VariantID] {
			return newInvalidRequest("duplicate variant in cart")
		}
		seen[it.VariantID] = true
	}

	if len(in.ShippingAddress) == 0 || string(in.ShippingAddress) == "null" {
		return newInvalidRequest("shipping_address is required")
	}
	if in.IdempotencyKey == "" || len(in.IdempotencyKey) > 255 {
		return newInvalidRequest("invalid idempotency_key")
	}
	return nil
}

func toCheckoutOutput(o model.Order, items []model.OrderItem) CheckoutOutput {
	outItems := make([]CheckoutItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, CheckoutItemOutput{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			SKU:            it.SKUSnapshot,
			UnitPriceCents: it.UnitPriceCents,
			Qty:            it.Qty,
		})
	}
	return CheckoutOutput{
		OrderID:    o.ID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Items:      outItems,
		CreatedAt:  o.CreatedAt,
	}
}

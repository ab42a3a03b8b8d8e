package event

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// 全イベント共通の封筒。payloadはイベント種別ごとの型をJSONで入れる。
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID      int64 `json:"product_id"`
	VariantID      int64 `json:"variant_id"`
	SellerID       int64 `json:"seller_id"`
	Qty            int64 `json:"qty"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    int64      `json:"order_id"`
	BuyerID    int64      `json:"buyer_id"`
	Items      []ItemLine `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID     int64  `json:"order_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ActorUserID int64  `json:"actor_user_id"`
}

// Partition keyはorder_id。同じ注文のイベントは順序を保つ。
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}

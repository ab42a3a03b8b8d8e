package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"app/internal/domain/event"
	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

// WithinTx自体が失敗するケース（commit失敗など）用
type FailingTxManagerMock struct {
	Err error
}

func (m *FailingTxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return m.Err
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	products   repo.ProductRepository
	variants   repo.VariantRepository
	inventory  repo.InventoryRepository
	users      repo.UserRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Products() repo.ProductRepository     { return r.products }
func (r *TxReposMock) Variants() repo.VariantRepository     { return r.variants }
func (r *TxReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *TxReposMock) Users() repo.UserRepository           { return r.users }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByBuyerID(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, buyerID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, buyerID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListBySellerID(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, sellerID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) UpdateStatus(ctx context.Context, productID int64, status model.ProductStatus) error {
	args := m.Called(ctx, productID, status)
	return args.Error(0)
}

func (m *ProductRepoMock) ListPublic(ctx context.Context, f repo.ListProductsFilter) ([]model.Product, int64, error) {
	args := m.Called(ctx, f)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) List(ctx context.Context, f repo.ListProductsFilter) ([]model.Product, int64, error) {
	args := m.Called(ctx, f)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

type VariantRepoMock struct{ mock.Mock }

func (m *VariantRepoMock) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	args := m.Called(ctx, variantID)
	v, _ := args.Get(0).(model.ProductVariant)
	return v, args.Error(1)
}

func (m *VariantRepoMock) ListByProductID(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	args := m.Called(ctx, productID)
	vs, _ := args.Get(0).([]model.ProductVariant)
	return vs, args.Error(1)
}

func (m *VariantRepoMock) Create(ctx context.Context, v model.ProductVariant) (int64, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(int64), args.Error(1)
}

func (m *VariantRepoMock) Update(ctx context.Context, v model.ProductVariant) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *VariantRepoMock) ListByIDsForUpdate(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	args := m.Called(ctx, variantIDs)
	vs, _ := args.Get(0).([]model.ProductVariant)
	return vs, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) SetStock(ctx context.Context, variantID int64, newStock int64) error {
	args := m.Called(ctx, variantID, newStock)
	return args.Error(0)
}

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error) {
	args := m.Called(ctx, variantID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) IncreaseStock(ctx context.Context, variantID int64, qty int64) error {
	args := m.Called(ctx, variantID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type AuditLogRepoMock struct{ mock.Mock }

func (m *AuditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditLogRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// イベント送信の記録だけ取るpublisher
type PublisherMock struct {
	Topics   []string
	Keys     [][]byte
	Payloads [][]byte
}

func (p *PublisherMock) Publish(topic string, key, value []byte) {
	p.Topics = append(p.Topics, topic)
	p.Keys = append(p.Keys, key)
	p.Payloads = append(p.Payloads, value)
}

// =====================
// fixtures
// =====================

type checkoutFixture struct {
	orders    *OrderRepoMock
	items     *OrderItemRepoMock
	products  *ProductRepoMock
	variants  *VariantRepoMock
	inventory *InventoryRepoMock
	txm       *TxManagerMock
	pub       *PublisherMock
	uc        *usecase.CheckoutUsecase
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		orders:    &OrderRepoMock{},
		items:     &OrderItemRepoMock{},
		products:  &ProductRepoMock{},
		variants:  &VariantRepoMock{},
		inventory: &InventoryRepoMock{},
		pub:       &PublisherMock{},
	}
	f.txm = &TxManagerMock{Repos: &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		products:   f.products,
		variants:   f.variants,
		inventory:  f.inventory,
	}}
	f.txm.On("WithinTx", mock.Anything).Return(nil)
	f.uc = usecase.NewCheckoutUsecase(f.txm, f.pub, "test-api")
	return f
}

func approvedProduct(id, sellerID int64) model.Product {
	return model.Product{
		ID:       id,
		SellerID: sellerID,
		Name:     "bulk widgets",
		Status:   model.ProductStatusApproved,
		IsActive: true,
	}
}

func variant(id, productID, priceCents, stock int64) model.ProductVariant {
	return model.ProductVariant{
		ID:         id,
		ProductID:  productID,
		SKU:        "SKU-1",
		PriceCents: priceCents,
		Stock:      stock,
		MOQ:        1,
	}
}

func addr() json.RawMessage {
	return json.RawMessage(`{"line1":"1-2-3 Chuo","city":"Osaka","zip":"530-0001"}`)
}

func placeInput(items ...usecase.CheckoutItemInput) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		Items:           items,
		ShippingAddress: addr(),
		IdempotencyKey:  "idem-key-1",
	}
}

// =====================
// tests
// =====================

// 在庫10・価格10000で2個注文 → 成功、合計20000、在庫は2減る
func TestPlaceOrder_HappyPath(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10}).
		Return([]model.ProductVariant{variant(10, 100, 10000, 10)}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.BuyerID == 1 &&
			o.Status == model.OrderStatusPending &&
			o.TotalCents == 20000 &&
			o.IdempotencyKey == "idem-key-1"
	})).Return(int64(555), nil)
	f.items.On("CreateBulk", mock.Anything, int64(555), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 &&
			items[0].VariantID == 10 &&
			items[0].UnitPriceCents == 10000 &&
			items[0].Qty == 2 &&
			items[0].SellerID == 7
	})).Return(nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(2)).
		Return(true, nil)

	out, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 2, PriceCents: 10000,
	}))

	assert.NoError(t, err)
	assert.Equal(t, int64(555), out.OrderID)
	assert.Equal(t, int64(20000), out.TotalCents)
	assert.Equal(t, string(model.OrderStatusPending), out.Status)
	f.inventory.AssertCalled(t, "DecreaseStockIfEnough", mock.Anything, int64(10), int64(2))

	//コミット後にorder.createdが1件出る
	assert.Equal(t, []string{event.TopicOrderCreated}, f.pub.Topics)
}

// 合計は正の価格×数量の総和（複数行）
func TestPlaceOrder_TotalAcrossLines(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10, 11}).
		Return([]model.ProductVariant{
			variant(10, 100, 10000, 10),
			variant(11, 100, 2500, 8),
		}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		// 3*10000 + 4*2500 = 40000
		return o.TotalCents == 40000
	})).Return(int64(556), nil)
	f.items.On("CreateBulk", mock.Anything, int64(556), mock.Anything).Return(nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(3)).Return(true, nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(11), int64(4)).Return(true, nil)

	out, err := f.uc.PlaceOrder(ctx, 1, placeInput(
		usecase.CheckoutItemInput{ProductID: 100, VariantID: 10, Qty: 3, PriceCents: 10000},
		usecase.CheckoutItemInput{ProductID: 100, VariantID: 11, Qty: 4, PriceCents: 2500},
	))

	assert.NoError(t, err)
	assert.Equal(t, int64(40000), out.TotalCents)
	assert.Len(t, out.Items, 2)
}

// サーバ側で価格が変わっていたら黙って正価を使わず失敗させる
func TestPlaceOrder_PriceMismatch(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10}).
		Return([]model.ProductVariant{variant(10, 100, 11000, 10)}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 2, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodePriceMismatch, ce.Code)
	assert.Equal(t, int64(10), ce.VariantID)
	assert.Equal(t, int64(11000), ce.ExpectedPriceCents)
	assert.Equal(t, int64(10000), ce.ActualPriceCents)
	assert.False(t, ce.Retryable())

	//注文も明細も在庫減算も一切走らない
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.items.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	f.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.pub.Topics)
}

// 在庫不足は利用可能数を返して失敗
func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10}).
		Return([]model.ProductVariant{variant(10, 100, 10000, 3)}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 6, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeInsufficientStock, ce.Code)
	assert.Equal(t, int64(3), ce.AvailableStock)
	assert.Equal(t, int64(6), ce.RequestedQty)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 消えたvariant・未承認商品はVARIANT_NOT_FOUND
func TestPlaceOrder_VariantNotFound(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	//ロック読みで1件も返ってこない
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{99}).
		Return([]model.ProductVariant{}, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 99, Qty: 1, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeVariantNotFound, ce.Code)
	assert.Equal(t, int64(99), ce.VariantID)
}

func TestPlaceOrder_UnapprovedProductRejected(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10}).
		Return([]model.ProductVariant{variant(10, 100, 10000, 10)}, nil)

	p := approvedProduct(100, 7)
	p.Status = model.ProductStatusPending
	f.products.On("FindByID", mock.Anything, int64(100)).Return(p, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 1, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeVariantNotFound, ce.Code)
}

// 2行目が在庫不足なら注文全体が失敗し、1行目の在庫にも触れない
func TestPlaceOrder_PartialLineFailureAbortsAll(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10, 11}).
		Return([]model.ProductVariant{
			variant(10, 100, 10000, 10),
			variant(11, 100, 2500, 1),
		}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(
		usecase.CheckoutItemInput{ProductID: 100, VariantID: 10, Qty: 2, PriceCents: 10000},
		usecase.CheckoutItemInput{ProductID: 100, VariantID: 11, Qty: 5, PriceCents: 2500},
	))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeInsufficientStock, ce.Code)
	assert.Equal(t, int64(11), ce.VariantID)

	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
}

// ロック中でも条件付きUPDATEが0行なら在庫不足として全体を落とす。
// 同じvariantへの同時注文で片方が負ける競合（行ロック＋条件付きUPDATEで
// DB側が解決する）の、unitレベルでの代替検証。
func TestPlaceOrder_ConditionalDecrementGuard(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(model.Order{}, false, nil)
	f.variants.On("ListByIDsForUpdate", mock.Anything, []int64{10}).
		Return([]model.ProductVariant{variant(10, 100, 10000, 10)}, nil)
	f.products.On("FindByID", mock.Anything, int64(100)).
		Return(approvedProduct(100, 7), nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(555), nil)
	f.items.On("CreateBulk", mock.Anything, int64(555), mock.Anything).Return(nil)
	f.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(10), int64(6)).
		Return(false, nil)

	_, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 6, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeInsufficientStock, ce.Code)
	//失敗時はイベントを出さない（rollback済み）
	assert.Empty(t, f.pub.Topics)
}

func TestPlaceOrder_Unauthenticated(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.PlaceOrder(context.Background(), 0, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 1, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeUnauthenticated, ce.Code)
}

func TestPlaceOrder_InvalidRequest(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	cases := map[string]usecase.PlaceOrderInput{
		"empty cart": {
			ShippingAddress: addr(),
			IdempotencyKey:  "k",
		},
		"zero qty": placeInput(usecase.CheckoutItemInput{
			ProductID: 100, VariantID: 10, Qty: 0, PriceCents: 10000,
		}),
		"negative price": placeInput(usecase.CheckoutItemInput{
			ProductID: 100, VariantID: 10, Qty: 1, PriceCents: -1,
		}),
		"duplicate variant": placeInput(
			usecase.CheckoutItemInput{ProductID: 100, VariantID: 10, Qty: 1, PriceCents: 10000},
			usecase.CheckoutItemInput{ProductID: 100, VariantID: 10, Qty: 2, PriceCents: 10000},
		),
		"missing address": {
			Items: []usecase.CheckoutItemInput{
				{ProductID: 100, VariantID: 10, Qty: 1, PriceCents: 10000},
			},
			IdempotencyKey: "k",
		},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.uc.PlaceOrder(ctx, 1, in)
			ce, ok := usecase.AsCheckoutError(err)
			assert.True(t, ok)
			assert.Equal(t, usecase.CheckoutCodeInvalidRequest, ce.Code)
		})
	}
}

// 同じキーの再送は既存の注文をそのまま返す（新規作成しない）
func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	existing := model.Order{
		ID:         555,
		BuyerID:    1,
		Status:     model.OrderStatusPending,
		TotalCents: 20000,
	}
	f.orders.On("FindByIdempotencyKey", mock.Anything, int64(1), "idem-key-1").
		Return(existing, true, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(555)).
		Return([]model.OrderItem{
			{OrderID: 555, ProductID: 100, VariantID: 10, UnitPriceCents: 10000, Qty: 2},
		}, nil)

	out, err := f.uc.PlaceOrder(ctx, 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 2, PriceCents: 10000,
	}))

	assert.NoError(t, err)
	assert.Equal(t, int64(555), out.OrderID)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	//再送ではイベントを二重に出さない
	assert.Empty(t, f.pub.Topics)
}

// commit自体の失敗はCOMMIT_FAILEDで返し、再試行可能と伝える
func TestPlaceOrder_CommitFailed(t *testing.T) {
	txm := &FailingTxManagerMock{Err: errors.New("connection reset")}
	uc := usecase.NewCheckoutUsecase(txm, nil, "test-api")

	_, err := uc.PlaceOrder(context.Background(), 1, placeInput(usecase.CheckoutItemInput{
		ProductID: 100, VariantID: 10, Qty: 1, PriceCents: 10000,
	}))

	ce, ok := usecase.AsCheckoutError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CheckoutCodeCommitFailed, ce.Code)
	assert.True(t, ce.Retryable())
}

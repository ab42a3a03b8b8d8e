package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// POST /checkout。全部のエントリポイントはCheckoutUsecaseに委譲する薄いアダプタ。
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutItemRequest struct {
	ProductID  int64 `json:"product_id"`
	VariantID  int64 `json:"variant_id"`
	Qty        int64 `json:"qty"`
	PriceCents int64 `json:"price_cents"`
}

type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items"`
	ShippingAddress json.RawMessage       `json:"shipping_address"`
}

// 失敗レスポンス。codeで機械判別、detailは該当コードだけ埋まる。
type CheckoutErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	VariantID          int64 `json:"variant_id,omitempty"`
	ExpectedPriceCents int64 `json:"expected_price_cents,omitempty"`
	ActualPriceCents   int64 `json:"actual_price_cents,omitempty"`
	AvailableStock     int64 `json:"available_stock,omitempty"`
	RequestedQty       int64 `json:"requested_qty,omitempty"`

	Retryable bool `json:"retryable"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
}

func (h *CheckoutHandler) create(c echo.Context) error {
	buyerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, CheckoutErrorResponse{
			Error: "unauthorized",
			Code:  string(usecase.CheckoutCodeUnauthenticated),
		})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, CheckoutErrorResponse{
			Error: "invalid body",
			Code:  string(usecase.CheckoutCodeInvalidRequest),
		})
	}

	//二重送信防止キーはヘッダーから受け取る。無ければ発行する
	idemKey := c.Request().Header.Get("X-Idempotency-Key")
	if idemKey == "" {
		idemKey = uuid.NewString()
	}

	items := make([]usecase.CheckoutItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CheckoutItemInput{
			ProductID:  it.ProductID,
			VariantID:  it.VariantID,
			Qty:        it.Qty,
			PriceCents: it.PriceCents,
		})
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), buyerID, usecase.PlaceOrderInput{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return writeCheckoutError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func writeCheckoutError(c echo.Context, err error) error {
	if ce, ok := usecase.AsCheckoutError(err); ok {
		return c.JSON(ce.HTTPStatus(), CheckoutErrorResponse{
			Error:              ce.Message,
			Code:               string(ce.Code),
			VariantID:          ce.VariantID,
			ExpectedPriceCents: ce.ExpectedPriceCents,
			ActualPriceCents:   ce.ActualPriceCents,
			AvailableStock:     ce.AvailableStock,
			RequestedQty:       ce.RequestedQty,
			Retryable:          ce.Retryable(),
		})
	}

	return c.JSON(http.StatusInternalServerError, CheckoutErrorResponse{
		Error: "internal error",
		Code:  string(usecase.CheckoutCodeUnknown),
	})
}

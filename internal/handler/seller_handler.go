package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Message string `json:"message"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

// /seller 配下。商品・variant・在庫の管理と受注。
type SellerHandler struct {
	uc      *usecase.SellerUsecase
	orderUC *usecase.OrderUsecase
}

func NewSellerHandler(uc *usecase.SellerUsecase, orderUC *usecase.OrderUsecase) *SellerHandler {
	return &SellerHandler{uc: uc, orderUC: orderUC}
}

type SellerProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type SellerVariantCreateRequest struct {
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Stock      int64  `json:"stock"`
	MOQ        int64  `json:"moq"`
}

type SellerVariantUpdateRequest struct {
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	MOQ        int64  `json:"moq"`
}

type StockUpdateRequest struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *SellerHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/seller")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.SellerRoleGuard())

	g.GET("/products", h.listProducts)
	g.POST("/products", h.createProduct)
	g.PATCH("/products/:id", h.updateProduct)
	g.POST("/products/:id/variants", h.createVariant)
	g.PATCH("/variants/:id", h.updateVariant)
	g.PATCH("/variants/:id/stock", h.updateStock)

	g.GET("/orders", h.listOrders)
	g.PATCH("/orders/:id/status", h.updateOrderStatus)
}

func (h *SellerHandler) listProducts(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page, limit, ok := pageLimit(c, 1, 20)
	if !ok {
		return nil
	}

	out, err := h.uc.ListMyProducts(c.Request().Context(), sellerID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerHandler) createProduct(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req SellerProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	id, err := h.uc.CreateProduct(c.Request().Context(), sellerID, usecase.ProductCreateInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (h *SellerHandler) updateProduct(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SellerProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateProduct(c.Request().Context(), sellerID, id, usecase.ProductUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *SellerHandler) createVariant(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SellerVariantCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	id, err := h.uc.CreateVariant(c.Request().Context(), sellerID, productID, usecase.VariantCreateInput{
		SKU:        req.SKU,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		MOQ:        req.MOQ,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

func (h *SellerHandler) updateVariant(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SellerVariantUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateVariant(c.Request().Context(), sellerID, id, usecase.VariantUpdateInput{
		SKU:        req.SKU,
		PriceCents: req.PriceCents,
		MOQ:        req.MOQ,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *SellerHandler) updateStock(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StockUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateStock(c.Request().Context(), sellerID, id, usecase.StockUpdateInput{
		Stock:  req.Stock,
		Reason: req.Reason,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *SellerHandler) listOrders(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page, limit, ok := pageLimit(c, 1, 50)
	if !ok {
		return nil
	}

	out, err := h.uc.ListSellerOrders(c.Request().Context(), sellerID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerHandler) updateOrderStatus(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.orderUC.UpdateStatusAsSeller(c.Request().Context(), sellerID, id, usecase.UpdateOrderStatusInput{
		Status: req.Status,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// page/limitクエリの共通パース。不正ならここでレスポンスを書いてfalseを返す
func pageLimit(c echo.Context, defPage, defLimit int) (int, int, bool) {
	page := defPage
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
			return 0, 0, false
		}
		page = p
	}

	limit := defLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

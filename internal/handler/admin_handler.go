package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin 配下のモデレーションAPI
type AdminHandler struct {
	uc      *usecase.AdminUsecase
	orderUC *usecase.OrderUsecase
}

func NewAdminHandler(uc *usecase.AdminUsecase, orderUC *usecase.OrderUsecase) *AdminHandler {
	return &AdminHandler{uc: uc, orderUC: orderUC}
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/sellers", h.listSellers)
	admin.PATCH("/sellers/:id/status", h.updateSellerStatus)

	admin.GET("/products", h.listProducts)
	admin.PATCH("/products/:id/status", h.updateProductStatus)

	admin.GET("/orders", h.listOrders)
	admin.PATCH("/orders/:id/status", h.updateOrderStatus)

	admin.GET("/audit-logs", h.listAuditLogs)
}

func (h *AdminHandler) listSellers(c echo.Context) error {
	page, limit, ok := pageLimit(c, 1, 50)
	if !ok {
		return nil
	}

	out, err := h.uc.ListSellers(c.Request().Context(), page, limit, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) updateSellerStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateSellerStatus(c.Request().Context(), adminID, id, req.Status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminHandler) listProducts(c echo.Context) error {
	page, limit, ok := pageLimit(c, 1, 20)
	if !ok {
		return nil
	}

	out, err := h.uc.ListProducts(c.Request().Context(), page, limit, c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) updateProductStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.UpdateProductStatus(c.Request().Context(), adminID, id, req.Status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminHandler) listOrders(c echo.Context) error {
	page, limit, ok := pageLimit(c, 1, 50)
	if !ok {
		return nil
	}

	f := repo.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}
	if v := c.QueryParam("buyer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid buyer_id"})
		}
		f.BuyerID = &id
	}

	out, err := h.uc.ListOrders(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) updateOrderStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.orderUC.UpdateStatusAsAdmin(c.Request().Context(), adminID, id, usecase.UpdateOrderStatusInput{
		Status: req.Status,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	f := repo.AuditLogFilter{}
	if v := c.QueryParam("actor_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid actor_user_id"})
		}
		f.ActorUserID = &id
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		f.Limit = l
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

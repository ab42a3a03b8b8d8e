package server

import (
	"net/http"

	"app/internal/config"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Catalog.RegisterRoutes(e)
	h.Checkout.RegisterRoutes(e, cfg)
	h.Orders.RegisterRoutes(e, cfg)
	h.Seller.RegisterRoutes(e, cfg)
	h.Admin.RegisterRoutes(e, cfg)
}

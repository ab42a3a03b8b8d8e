package server

import (
	"context"

	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Catalog  *handler.CatalogHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Seller   *handler.SellerHandler
	Admin    *handler.AdminHandler
}

// Newはechoを組み立ててルートを登録する
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	RegisterRoutes(e, cfg, h)
	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}

func Shutdown(ctx context.Context, e *echo.Echo) error {
	return e.Shutdown(ctx)
}

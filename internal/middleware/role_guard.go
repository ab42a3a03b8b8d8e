package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return requireRole("ADMIN", "admin only")
}

//出品者API用。ADMINも通す（サポート対応のため）。

func SellerRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if role != "SELLER" && role != "ADMIN" {
				return c.JSON(http.StatusForbidden, errorJSON("seller only"))
			}
			return next(c)
		}
	}
}

func requireRole(want string, denyMsg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if role != want {
				return c.JSON(http.StatusForbidden, errorJSON(denyMsg))
			}
			return next(c)
		}
	}
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PWRApex/english-prep-companion/apps/di"
)

func registerDashboardAPI(g *echo.Group, authed echo.MiddlewareFunc, c *di.Container) {
	g.GET("/dashboard", func(ctx echo.Context) error {
		sum, err := c.Dashboard(ctx.Request().Context())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, sum)
	}, authed)

	// transient notifications, each returned once
	g.GET("/notifications", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, c.Notifications.Drain())
	})
}

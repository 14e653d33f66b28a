package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/session"
)

// sessionMiddleware only lets requests through while the process is signed in. A Bearer token,
// when sent, must be the access token of the current session.
func sessionMiddleware(sess *session.Context) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, ok := sess.User(); !ok {
				return core.ErrNotAuthenticated
			}
			if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
				token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
				if token != sess.AccessToken() {
					return &core.AuthError{Message: "Invalid JWT"}
				}
			}
			return next(ctx)
		}
	}
}

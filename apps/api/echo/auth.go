package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
	"github.com/PWRApex/english-prep-companion/core/session"
)

type authApi struct {
	sess *session.Context
}

type sessionResponse struct {
	User      core.User `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
	Recovery  bool      `json:"recovery"`
}

type recoveryRequest struct {
	Token string `json:"token"`
}

func registerAuthAPI(g *echo.Group, authed echo.MiddlewareFunc, sess *session.Context) {
	api := authApi{sess: sess}

	ag := g.Group("/auth")
	ag.POST("/signin", api.signIn)
	ag.POST("/signup", api.signUp)
	ag.POST("/reset-password", api.resetPassword)
	ag.POST("/recover", api.recover)
	ag.POST("/update-password", api.updatePassword) // the session enforces the recovery gate

	ag.GET("/session", api.session, authed)
	ag.POST("/signout", api.signOut, authed)
}

func (api *authApi) signIn(ctx echo.Context) error {
	var data session.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := api.sess.SignIn(ctx.Request().Context(), data); err != nil {
		return err
	}
	return api.session(ctx)
}

func (api *authApi) signUp(ctx echo.Context) error {
	var data session.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := api.sess.SignUp(ctx.Request().Context(), data); err != nil {
		return err
	}
	if api.sess.Session() == nil { // the email must be confirmed first
		return ctx.NoContent(http.StatusAccepted)
	}
	return api.sessionWithStatus(ctx, http.StatusCreated)
}

func (api *authApi) signOut(ctx echo.Context) error {
	if err := api.sess.SignOut(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data session.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := api.sess.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *authApi) recover(ctx echo.Context) error {
	var data recoveryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to recoveryRequest")
	}
	if err := api.sess.BeginRecovery(ctx.Request().Context(), data.Token); err != nil {
		return err
	}
	return api.session(ctx)
}

func (api *authApi) updatePassword(ctx echo.Context) error {
	var data session.PasswordUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordUpdate")
	}
	if err := api.sess.UpdatePassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return api.session(ctx)
}

func (api *authApi) session(ctx echo.Context) error {
	return api.sessionWithStatus(ctx, http.StatusOK)
}

func (api *authApi) sessionWithStatus(ctx echo.Context, code int) error {
	sess := api.sess.Session()
	if sess == nil {
		return core.ErrNotAuthenticated
	}
	return ctx.JSON(code, sessionResponse{User: sess.User, ExpiresAt: sess.ExpiresAt, Recovery: sess.Recovery})
}

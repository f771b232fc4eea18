package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core/session"
	"github.com/madrasa-app/madrasa/core/user"
)

type authApi struct {
	svc      *user.Service
	sessions *session.Manager
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		svc:      opts.UserSvc,
		sessions: opts.Sessions,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	sg := ag.Group("", jwt)
	sg.POST("/logout", api.logout)
	sg.POST("/token-refresh", api.refreshToken)
	sg.GET("/me", api.me)
	sg.PUT("/profile", api.updateProfile)
	sg.POST("/change-password", api.changePassword)

	// admin-only user management
	ug := g.Group("/users", jwt, adminMiddleware())
	ug.POST("", api.create)
	ug.GET("", api.query)
	ug.GET("/roles", api.queryRoles)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res := api.sessions.Login(session.Credentials{
		Username:   data.Username,
		Password:   data.Password,
		Role:       data.Role,
		RememberMe: data.RememberMe,
		Device:     ctx.Request().UserAgent(),
		ClientAddr: ctx.RealIP(),
	})
	if !res.Success {
		return ctx.JSON(http.StatusUnauthorized, res)
	}

	usr, _ := api.sessions.CurrentUser()
	sess, _ := api.sessions.CurrentSession()
	token, err := GenerateToken(GetUserClaims(usr, sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Message:   res.Message,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      usr.Public(),
	})
}

func (api *authApi) logout(ctx echo.Context) error {
	api.sessions.Logout()
	return ctx.JSON(http.StatusOK, session.Result{Success: true, Message: "logged out"})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	if _, _, err := requireActiveSession(ctx, api.sessions); err != nil {
		return err
	}
	if !api.sessions.RefreshToken() {
		return errUnauthorized
	}

	usr, _ := api.sessions.CurrentUser()
	sess, ok := api.sessions.CurrentSession()
	if !ok {
		return errUnauthorized
	}
	token, err := GenerateToken(GetUserClaims(usr, sess))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: sess.ExpiresAt})
}

func (api *authApi) me(ctx echo.Context) error {
	if _, _, err := requireActiveSession(ctx, api.sessions); err != nil {
		return err
	}
	usr, _ := api.sessions.CurrentUser()
	sess, _ := api.sessions.CurrentSession()
	return ctx.JSON(http.StatusOK, MeResponse{
		User: usr.Public(),
		Session: SessionResponse{
			ID:           sess.ID,
			Device:       sess.Device,
			CreatedAt:    sess.CreatedAt,
			ExpiresAt:    sess.ExpiresAt,
			LastActivity: sess.LastActivity,
		},
	})
}

func (api *authApi) updateProfile(ctx echo.Context) error {
	if _, _, err := requireActiveSession(ctx, api.sessions); err != nil {
		return err
	}
	var data session.ProfileUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdate")
	}

	res := api.sessions.UpdateProfile(data)
	if !res.Success {
		return ctx.JSON(http.StatusBadRequest, res)
	}
	usr, _ := api.sessions.CurrentUser()
	return ctx.JSON(http.StatusOK, usr.Public())
}

func (api *authApi) changePassword(ctx echo.Context) error {
	if _, _, err := requireActiveSession(ctx, api.sessions); err != nil {
		return err
	}
	var data ChangePasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}

	res := api.sessions.ChangePassword(data.CurrentPassword, data.NewPassword)
	if !res.Success {
		return ctx.JSON(http.StatusBadRequest, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *authApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr.Public())
}

func (api *authApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	public := make([]user.User, 0, len(users))
	for _, usr := range users {
		public = append(public, usr.Public())
	}
	return ctx.JSON(http.StatusOK, public)
}

func (api *authApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.AllRoles)
}

func (api *authApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr.Public())
}

func (api *authApi) update(ctx echo.Context) error {
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr.Public())
}

func (api *authApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

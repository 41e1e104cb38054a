package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mobashi/surv/core/user"
)

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, deps ServerDeps) {
	api := authApi{deps: deps}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)

	wg := ag.Group("/webauthn")
	wg.POST("/signup-request", api.signupRequest)
	wg.POST("/signup/:ukey", api.signup)
	wg.POST("/login-request", api.loginRequest)
	wg.POST("/login", api.webauthnLogin)
}

// login is the password fallback for staff accounts; respondents use passkeys
// or intake tokens.
func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errAuthenticationFailed
		}
		return err
	}

	tok, err := api.deps.UserSvc.GetOrCreateToken(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: tok.Key})
}

func (api *authApi) signupRequest(ctx echo.Context) error {
	var data SignupOptionsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignupOptionsRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	opts, ukey, err := api.deps.WebauthnSvc.BeginSignup(ctx.Request().Context(), data.Username, data.DisplayName, data.Email)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SignupOptionsResponse{Ukey: ukey, Options: json.RawMessage(opts)})
}

// signup completes a pending registration: the body is the authenticator's
// attestation response, passed through verbatim.
func (api *authApi) signup(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading attestation response")
	}

	usr, err := api.deps.WebauthnSvc.FinishSignup(ctx.Request().Context(), ctx.Param("ukey"), body)
	if err != nil {
		if errors.Cause(err) == user.ErrCredentialsNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, newUserResponse(usr))
}

func (api *authApi) loginRequest(ctx echo.Context) error {
	var data UsernameRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UsernameRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	opts, err := api.deps.WebauthnSvc.BeginLogin(ctx.Request().Context(), data.Username)
	if err != nil {
		if errors.Cause(err) == user.ErrCredentialsNotFound {
			return errAuthenticationFailed
		}
		return err
	}
	return ctx.JSON(http.StatusOK, LoginOptionsResponse{Options: json.RawMessage(opts)})
}

type webauthnLoginRequest struct {
	Username string          `json:"username" validate:"required"`
	Response json.RawMessage `json:"response" validate:"required"`
}

func (api *authApi) webauthnLogin(ctx echo.Context) error {
	var data webauthnLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to webauthnLoginRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	tok, err := api.deps.WebauthnSvc.FinishLogin(ctx.Request().Context(), data.Username, data.Response)
	if err != nil {
		if errors.Cause(err) == user.ErrCredentialsNotFound {
			return errAuthenticationFailed
		}
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: tok.Key})
}

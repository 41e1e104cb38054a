package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mobashi/surv/core/user"
)

const contextUserKey = "user"

// tokenAuthMiddleware authenticates requests carrying an opaque
// "Authorization: Token <key>" header and stashes the user in the context.
func tokenAuthMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Token",
		Validator:  keyValidator(svc),
	})
}

// optionalTokenAuthMiddleware is the same but lets anonymous requests through:
// survey intake is self-service and must work without credentials.
func optionalTokenAuthMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Token",
		Validator:  keyValidator(svc),
		Skipper: func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
	})
}

func keyValidator(svc user.ServiceInterface) middleware.KeyAuthValidator {
	return func(key string, ctx echo.Context) (bool, error) {
		usr, err := svc.GetByToken(ctx.Request().Context(), key)
		if err != nil {
			return false, nil
		}
		if !usr.IsActive {
			return false, errAccountDeactivated
		}
		ctx.Set(contextUserKey, usr)
		return true, nil
	}
}

// getContextUser returns the authenticated user, or nil on anonymous requests.
func getContextUser(ctx echo.Context) *user.User {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return &usr
	}
	return nil
}

// adminMiddleware rejects everyone but survey-admin group members.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr := getContextUser(ctx)
			if usr == nil {
				return errUnauthorized
			}
			if !usr.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

var errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")

package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnflow/backend/core/account"
	"github.com/learnflow/backend/core/auth"
)

var contextClaimsKey = "accountToken"

// jwtMiddleware authenticates requests carrying a Bearer token and stores the
// verified claims in the echo.Context.
func jwtMiddleware(tokenSvc auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				return errTokenMissing
			}

			claims, err := tokenSvc.Validate(strings.TrimSpace(header[len(prefix):]))
			if err != nil {
				switch err {
				case auth.ErrTokenExpired:
					return errTokenExpired
				default:
					return errTokenInvalid
				}
			}

			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims); ok {
		return *claims, nil
	}
	return auth.Claims{}, errUnauthorized
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == account.RoleAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

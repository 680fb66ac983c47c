package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core/user"
)

// portalMiddleware only lets through tokens issued for portal.
func portalMiddleware(portal string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			switch {
			case claims.Portal != portal:
				return errHttpForbidden
			case portal == user.PortalAdmin && claims.IsAdmin:
				return next(ctx)
			case portal == user.PortalTeacher && claims.IsTeacher:
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

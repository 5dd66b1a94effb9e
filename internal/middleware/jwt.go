package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/auth"
)

// JWTAuth validates the Bearer access token and injects the numeric user id
// and role set into the request context under "user_id" and "roles".
// Verification is stateless; a revoked account keeps passing here until its
// access token expires, after which the refresh path enforces the epoch.
func JWTAuth(verifier *auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := verifier.VerifyAccess(raw)
			if err != nil {
				if errors.Is(err, auth.ErrAccessExpired) {
					// Distinct message so clients know a refresh may rescue
					// the request instead of forcing re-login.
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set("user_id", uid)
			c.Set("roles", claims.Roles)
			return next(c)
		}
	}
}

// UserID pulls the authenticated user id set by JWTAuth. Zero means the
// middleware did not run.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}

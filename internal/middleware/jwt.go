package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/service"
)

// Resolver turns a bearer credential into a session.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (service.Session, error)
}

// JWTAuth resolves the Bearer token of every request into a session and
// stores it for downstream handlers (see SessionFrom). A missing, invalid or
// expired token, or one naming a deleted user, ends the request with 401.
func JWTAuth(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := r.Resolve(c.Request().Context(), bearerToken(c.Request()))
			if err != nil {
				return Fail(c, http.StatusUnauthorized, err)
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// Any other scheme yields "".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(auth), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

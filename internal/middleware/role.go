package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/service"
)

// Require enforces the authorization gate: every predicate must hold for the
// session placed in the context by JWTAuth. The first failing predicate's
// reason is returned with 403.
func Require(preds ...service.Predicate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := SessionFrom(c)
			if !ok {
				return Fail(c, http.StatusUnauthorized, apperr.ErrUnauthenticated)
			}
			if err := service.Authorize(sess, preds...); err != nil {
				return Fail(c, http.StatusForbidden, err)
			}
			return next(c)
		}
	}
}

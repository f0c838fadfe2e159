package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/service"
)

// sessionKey is where JWTAuth stores the resolved service.Session.
const sessionKey = "session"

// SessionFrom returns the session stored by JWTAuth.
func SessionFrom(c echo.Context) (service.Session, bool) {
	s, ok := c.Get(sessionKey).(service.Session)
	return s, ok
}

// userID returns the authenticated user's id, or "guest".
func userID(c echo.Context) string {
	if s, ok := SessionFrom(c); ok && s.User.ID != "" {
		return s.User.ID
	}
	return "guest"
}

// Fail writes err as {"error": reason, "kind": kind}. Unclassified errors
// are reported as internal without leaking their text.
func Fail(c echo.Context, status int, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, echo.Map{
		"error": apperr.ReasonOf(err),
		"kind":  apperr.KindOf(err),
	})
}

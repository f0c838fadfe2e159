package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/middleware"
	"github.com/smartplate/smartplate/internal/service"
)

// requestTimeout bounds the store and provider work of a single request.
const requestTimeout = 5 * time.Second

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindTokenExpired, apperr.KindTokenInvalid, apperr.KindUnauthenticated,
		apperr.KindUserNotFound, apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperr.KindProviderRejected, apperr.KindRoleAlreadySet, apperr.KindInvalidRole,
		apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with the given status, logging anything that maps to 500.
func fail(c echo.Context, log logging.Logger, status int, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "err", err)
	}
	return middleware.Fail(c, status, err)
}

// invalidInput wraps a binding or validation failure.
func invalidInput(err error) error {
	return apperr.Wrap(apperr.KindInvalidInput, err.Error(), err)
}

// bindValid binds the JSON body into v and runs its Validate method.
func bindValid(c echo.Context, v interface{ Validate() error }) error {
	if err := c.Bind(v); err != nil {
		return apperr.New(apperr.KindInvalidInput, "invalid body")
	}
	if err := v.Validate(); err != nil {
		return invalidInput(err)
	}
	return nil
}

// currentSession returns the session placed in the context by JWTAuth.
func currentSession(c echo.Context) (service.Session, error) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		return service.Session{}, apperr.ErrUnauthenticated
	}
	return s, nil
}

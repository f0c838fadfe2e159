package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/service"
)

// AdminHandler serves the admin-only routes.
type AdminHandler struct {
	Auth *service.AuthService
	Log  logging.Logger
}

func NewAdminHandler(a *service.AuthService, log logging.Logger) *AdminHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &AdminHandler{Auth: a, Log: log}
}

// ApproveNGO sets is_verified on the user named by the :user_id path param.
func (h *AdminHandler) ApproveNGO(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return fail(c, h.Log, http.StatusUnauthorized, err)
	}
	target := strings.TrimSpace(c.Param("user_id"))
	if target == "" {
		return fail(c, h.Log, http.StatusBadRequest, apperr.New(apperr.KindInvalidInput, "user_id required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.ApproveNGO(ctx, sess, target); err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "NGO approved"})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/service"
	"github.com/smartplate/smartplate/internal/utils"
)

// AuthHandler bundles dependencies for the /api/auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	Log  logging.Logger
}

func NewAuthHandler(a *service.AuthService, log logging.Logger) *AuthHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r registerReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		// bcrypt ignores everything past 72 bytes.
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type googleReq struct {
	Credential string `json:"credential"`
}

func (r googleReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required),
	)
}

type selectRoleReq struct {
	Role string `json:"role"`
}

type authResp struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
	IsNew     *bool      `json:"is_new,omitempty"`
}

func newAuthResp(tok utils.AccessToken, u model.User) authResp {
	return authResp{Token: tok.Token, ExpiresAt: tok.Exp, User: u}
}

// Register creates a local account and returns a token with no role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, err)
	}
	req.Email = strings.TrimSpace(req.Email)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Register(ctx, req.Email, strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		status := statusFor(err)
		if apperr.KindOf(err) == apperr.KindInvalidCredentials {
			// Duplicate email is a bad request here, not an auth failure.
			status = http.StatusBadRequest
		}
		return fail(c, h.Log, status, err)
	}
	return c.JSON(http.StatusCreated, newAuthResp(res.Token, res.User))
}

// Login verifies a local password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, newAuthResp(res.Token, res.User))
}

// Google exchanges a Google ID token for a local session, creating the
// account on first sign-in.
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.AuthenticateWithProvider(ctx, req.Credential)
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	out := newAuthResp(res.Token, res.User)
	out.IsNew = &res.IsNew
	return c.JSON(http.StatusOK, out)
}

// SelectRole performs the one-time role choice and returns a fresh token
// carrying it.
func (h *AuthHandler) SelectRole(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return fail(c, h.Log, http.StatusUnauthorized, err)
	}
	var req selectRoleReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, apperr.New(apperr.KindInvalidInput, "invalid body"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.AssignRole(ctx, sess, strings.TrimSpace(req.Role))
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"role":       res.Role,
		"token":      res.Token.Token,
		"expires_at": res.Token.Exp,
	})
}

// Me returns the stored user record alongside the role carried by the
// presented token, which may lag behind the stored one.
func (h *AuthHandler) Me(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return fail(c, h.Log, http.StatusUnauthorized, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":       sess.User,
		"token_role": sess.Role(),
	})
}

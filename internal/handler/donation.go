package handler

import (
	"context"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/service"
)

// DonationHandler serves the NGO, donor and public analytics routes. The
// role gate runs in middleware before these handlers.
type DonationHandler struct {
	Donations *service.DonationService
	Log       logging.Logger
}

func NewDonationHandler(d *service.DonationService, log logging.Logger) *DonationHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &DonationHandler{Donations: d, Log: log}
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l locationReq) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&l.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

type foodRequestReq struct {
	FoodType string       `json:"food_type"`
	Quantity int          `json:"quantity"`
	Urgency  string       `json:"urgency"`
	Location *locationReq `json:"location"`
	Address  string       `json:"address"`
}

func (r foodRequestReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FoodType, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&r.Urgency, validation.In(model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh)),
		validation.Field(&r.Location, validation.Required),
		validation.Field(&r.Address, validation.Required, validation.Length(1, 500)),
	)
}

type fulfillReq struct {
	RequestID string `json:"request_id"`
	Quantity  int    `json:"quantity"`
}

func (r fulfillReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestID, validation.Required),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}

// CreateRequest stores a food request for the calling verified NGO.
func (h *DonationHandler) CreateRequest(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return fail(c, h.Log, http.StatusUnauthorized, err)
	}
	var req foodRequestReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	fr, err := h.Donations.CreateRequest(ctx, sess, service.NewFoodRequest{
		FoodType: strings.TrimSpace(req.FoodType),
		Quantity: req.Quantity,
		Urgency:  req.Urgency,
		Location: model.Location{Lat: req.Location.Lat, Lng: req.Location.Lng},
		Address:  strings.TrimSpace(req.Address),
	})
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"request": fr})
}

// Fulfill records a donor's pledge against an existing request.
func (h *DonationHandler) Fulfill(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return fail(c, h.Log, http.StatusUnauthorized, err)
	}
	var req fulfillReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.Log, http.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	f, err := h.Donations.Fulfill(ctx, sess, strings.TrimSpace(req.RequestID), req.Quantity)
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"fulfillment": f})
}

// PublicAnalytics returns anonymous platform counters.
func (h *DonationHandler) PublicAnalytics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Donations.PublicStats(ctx)
	if err != nil {
		return fail(c, h.Log, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, st)
}

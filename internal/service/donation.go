package service

import (
	"context"
	"errors"
	"time"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/queue"
	"github.com/smartplate/smartplate/internal/repository"
)

type FoodRequestStore interface {
	Create(ctx context.Context, fr model.FoodRequest) error
	GetByID(ctx context.Context, id string) (model.FoodRequest, error)
	Count(ctx context.Context) (int64, error)
}

type FulfillmentStore interface {
	Create(ctx context.Context, f model.Fulfillment) error
	Count(ctx context.Context) (int64, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// DonationService records NGO requests and donor fulfillments. Callers are
// expected to have passed the authorization gate already.
type DonationService struct {
	requests     FoodRequestStore
	fulfillments FulfillmentStore
	users        UserCounter
	events       EventPublisher
	log          logging.Logger
	now          func() time.Time
}

type DonationDeps struct {
	Requests     FoodRequestStore
	Fulfillments FulfillmentStore
	Users        UserCounter
	Events       EventPublisher
	Log          logging.Logger
	Now          func() time.Time
}

func NewDonationService(d DonationDeps) *DonationService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &DonationService{
		requests:     d.Requests,
		fulfillments: d.Fulfillments,
		users:        d.Users,
		events:       d.Events,
		log:          d.Log.With("component", "donation"),
		now:          d.Now,
	}
}

// NewFoodRequest is the validated input of CreateRequest.
type NewFoodRequest struct {
	FoodType string
	Quantity int
	Urgency  string
	Location model.Location
	Address  string
}

// CreateRequest stores a pending food request owned by the calling NGO.
func (s *DonationService) CreateRequest(ctx context.Context, ngo Session, in NewFoodRequest) (model.FoodRequest, error) {
	urgency := in.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}
	fr := model.FoodRequest{
		ID:        newID(),
		NGOID:     ngo.User.ID,
		FoodType:  in.FoodType,
		Quantity:  in.Quantity,
		Urgency:   urgency,
		Location:  in.Location,
		Address:   in.Address,
		Status:    model.RequestStatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.requests.Create(ctx, fr); err != nil {
		return model.FoodRequest{}, apperr.Wrap(apperr.KindInternal, "create request failed", err)
	}
	publish(ctx, s.events, s.log,
		queue.NewEvent(queue.EventRequestCreated, ngo.User.ID, s.now()).WithSubject(fr.ID))
	return fr, nil
}

// Fulfill records the calling donor's pledge against an existing request.
func (s *DonationService) Fulfill(ctx context.Context, donor Session, requestID string, quantity int) (model.Fulfillment, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Fulfillment{}, apperr.New(apperr.KindNotFound, "Request not found")
		}
		return model.Fulfillment{}, apperr.Wrap(apperr.KindInternal, "load request failed", err)
	}
	f := model.Fulfillment{
		ID:        newID(),
		RequestID: req.ID,
		DonorID:   donor.User.ID,
		Quantity:  quantity,
		CreatedAt: s.now().UTC(),
	}
	if err := s.fulfillments.Create(ctx, f); err != nil {
		return model.Fulfillment{}, apperr.Wrap(apperr.KindInternal, "create fulfillment failed", err)
	}
	publish(ctx, s.events, s.log,
		queue.NewEvent(queue.EventFulfillmentCreated, donor.User.ID, s.now()).WithSubject(f.ID))
	return f, nil
}

// PublicStats counts users, requests and fulfillments.
func (s *DonationService) PublicStats(ctx context.Context) (model.PublicStats, error) {
	var (
		st  model.PublicStats
		err error
	)
	if st.Users, err = s.users.Count(ctx); err != nil {
		return model.PublicStats{}, apperr.Wrap(apperr.KindInternal, "count failed", err)
	}
	if st.Requests, err = s.requests.Count(ctx); err != nil {
		return model.PublicStats{}, apperr.Wrap(apperr.KindInternal, "count failed", err)
	}
	if st.Fulfilled, err = s.fulfillments.Count(ctx); err != nil {
		return model.PublicStats{}, apperr.Wrap(apperr.KindInternal, "count failed", err)
	}
	return st, nil
}

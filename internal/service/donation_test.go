package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/repository"
)

type memRequests struct {
	mu   sync.Mutex
	byID map[string]model.FoodRequest
}

func (m *memRequests) Create(_ context.Context, fr model.FoodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[fr.ID] = fr
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id string) (model.FoodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fr, ok := m.byID[id]
	if !ok {
		return model.FoodRequest{}, repository.ErrNotFound
	}
	return fr, nil
}

func (m *memRequests) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

type memFulfillments struct {
	mu   sync.Mutex
	list []model.Fulfillment
}

func (m *memFulfillments) Create(_ context.Context, f model.Fulfillment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, f)
	return nil
}

func (m *memFulfillments) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.list)), nil
}

func TestDonationService_Flow(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	users.put(model.User{ID: "ngo1", Email: "n@x.com", Role: model.RoleNGO, IsVerified: true})
	users.put(model.User{ID: "donor1", Email: "d@x.com", Role: model.RoleDonor})
	events := &recordingPublisher{}
	svc := NewDonationService(DonationDeps{
		Requests:     &memRequests{byID: map[string]model.FoodRequest{}},
		Fulfillments: &memFulfillments{},
		Users:        users,
		Events:       events,
	})

	ngo := session(model.RoleNGO, true)
	ngo.User.ID = "ngo1"
	fr, err := svc.CreateRequest(ctx, ngo, NewFoodRequest{
		FoodType: "rice", Quantity: 20, Location: model.Location{Lat: 1, Lng: 2}, Address: "Main St",
	})
	require.NoError(t, err)
	require.Equal(t, model.UrgencyMedium, fr.Urgency)
	require.Equal(t, model.RequestStatusPending, fr.Status)
	require.Equal(t, "ngo1", fr.NGOID)

	donor := session(model.RoleDonor, false)
	donor.User.ID = "donor1"
	ful, err := svc.Fulfill(ctx, donor, fr.ID, 5)
	require.NoError(t, err)
	require.Equal(t, fr.ID, ful.RequestID)
	require.Equal(t, "donor1", ful.DonorID)

	_, err = svc.Fulfill(ctx, donor, "missing", 5)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, "Request not found", apperr.ReasonOf(err))

	st, err := svc.PublicStats(ctx)
	require.NoError(t, err)
	require.Equal(t, model.PublicStats{Users: 2, Requests: 1, Fulfilled: 1}, st)
	require.Len(t, events.types(), 2)
}

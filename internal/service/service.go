// Package service implements the identity and access-control core: local
// registration and login, Google sign-in, session resolution, the
// authorization gate, one-time role selection and admin NGO approval, plus
// the donation operations that sit behind the gate.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/provider/google"
	"github.com/smartplate/smartplate/internal/queue"
)

// UserStore is the subset of the users repository the core needs.
type UserStore interface {
	Create(ctx context.Context, u model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	SetRoleIfUnset(ctx context.Context, id string, role model.Role) error
	MarkVerified(ctx context.Context, id string) error
}

// PasswordHasher hashes and checks local passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, hash, plain string) bool
}

// IdentityVerifier checks a third-party ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (google.Identity, error)
}

// EventPublisher ships domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

const publishTimeout = 2 * time.Second

func newID() string { return uuid.NewString() }

// publish sends ev and only logs failures; the operation that produced the
// event has already succeeded.
func publish(ctx context.Context, p EventPublisher, log logging.Logger, ev queue.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn(ctx, "event publish failed", "type", ev.Type, "err", err)
	}
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/repository"
	"github.com/smartplate/smartplate/internal/utils"
)

// Session is an authenticated caller: the stored user record plus the
// claims of the token they presented.
type Session struct {
	User   model.User
	Claims utils.Claims
}

// Role is the role embedded in the presented token, i.e. the role the user
// had when the token was issued. Role predicates use this value, so a token
// minted before role selection never passes them even after the stored role
// changes.
func (s Session) Role() model.Role { return s.Claims.Role }

// SessionResolver turns a bearer token into a Session.
type SessionResolver struct {
	tokens *utils.TokenIssuer
	users  UserStore
}

func NewSessionResolver(tokens *utils.TokenIssuer, users UserStore) *SessionResolver {
	return &SessionResolver{tokens: tokens, users: users}
}

// Resolve verifies bearer and loads the user it names. It fails with
// Unauthenticated when no token is given, TokenExpired/TokenInvalid when
// verification fails, and UserNotFound when the token is valid but the user
// record is gone.
func (r *SessionResolver) Resolve(ctx context.Context, bearer string) (Session, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return Session{}, apperr.ErrUnauthenticated
	}
	claims, err := r.tokens.Verify(bearer)
	if err != nil {
		return Session{}, err
	}
	u, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperr.ErrUserNotFound
		}
		return Session{}, apperr.Wrap(apperr.KindInternal, "load user failed", err)
	}
	return Session{User: u, Claims: *claims}, nil
}

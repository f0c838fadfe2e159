package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/queue"
	"github.com/smartplate/smartplate/internal/repository"
	"github.com/smartplate/smartplate/internal/utils"
)

// AuthResult is what every successful sign-in returns.
type AuthResult struct {
	Token utils.AccessToken
	User  model.User
}

// AuthService bundles the credential-issuing operations.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens *utils.TokenIssuer
	idp    IdentityVerifier
	events EventPublisher
	log    logging.Logger
	now    func() time.Time

	dummyMu   sync.Mutex
	dummyHash string
}

// AuthDeps lists AuthService collaborators. Events may be nil.
type AuthDeps struct {
	Users    UserStore
	Hasher   PasswordHasher
	Tokens   *utils.TokenIssuer
	Identity IdentityVerifier
	Events   EventPublisher
	Log      logging.Logger
	Now      func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &AuthService{
		users:  d.Users,
		hasher: d.Hasher,
		tokens: d.Tokens,
		idp:    d.Identity,
		events: d.Events,
		log:    d.Log.With("component", "auth"),
		now:    d.Now,
	}
}

// Register creates a local account and signs it in. The new user has no
// role and is not verified.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (AuthResult, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, apperr.New(apperr.KindInvalidCredentials, "Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, apperr.Wrap(apperr.KindInternal, "query failed", err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.KindInternal, "hash password failed", err)
	}
	u := model.User{
		ID:           newID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return AuthResult{}, apperr.New(apperr.KindInvalidCredentials, "Email already registered")
		}
		return AuthResult{}, apperr.Wrap(apperr.KindInternal, "create user failed", err)
	}
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	publish(ctx, s.events, s.log, queue.NewEvent(queue.EventUserRegistered, u.ID, s.now()).WithEmail(u.Email))

	return s.signIn(u)
}

// Login checks a local password. Unknown emails, accounts without a local
// password and wrong passwords all fail with the same InvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, apperr.Wrap(apperr.KindInternal, "query failed", err)
	}
	if err != nil || !u.HasPassword() {
		// Burn a comparison so unknown accounts cost the same as known ones.
		s.hasher.Verify(ctx, s.placeholderHash(ctx), password)
		return AuthResult{}, apperr.ErrInvalidCredentials
	}
	if !s.hasher.Verify(ctx, u.PasswordHash, password) {
		return AuthResult{}, apperr.ErrInvalidCredentials
	}
	return s.signIn(u)
}

// FederatedResult is an AuthResult plus whether the account was created by
// this call.
type FederatedResult struct {
	AuthResult
	IsNew bool
}

// AuthenticateWithProvider exchanges a Google ID token for a local session.
// An existing account with the same email is reused untouched; otherwise a
// password-less account is created.
func (s *AuthService) AuthenticateWithProvider(ctx context.Context, idToken string) (FederatedResult, error) {
	id, err := s.idp.Verify(ctx, idToken)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindProviderRejected, apperr.KindProviderUnavailable:
			s.log.Warn(ctx, "identity provider failure", "kind", apperr.KindOf(err), "err", err)
			return FederatedResult{}, err
		}
		return FederatedResult{}, apperr.Wrap(apperr.KindProviderUnavailable, apperr.ErrProviderUnavailable.Reason, err)
	}
	if !id.EmailVerified {
		s.log.Warn(ctx, "google identity with unverified email", "google_sub", id.Subject)
		return FederatedResult{}, apperr.Wrap(apperr.KindProviderRejected, apperr.ErrProviderRejected.Reason,
			errors.New("email not verified by provider"))
	}

	u, err := s.users.GetByEmail(ctx, id.Email)
	if err == nil {
		res, err := s.signIn(u)
		return FederatedResult{AuthResult: res}, err
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return FederatedResult{}, apperr.Wrap(apperr.KindInternal, "query failed", err)
	}

	u = model.User{
		ID:        newID(),
		Email:     id.Email,
		Name:      id.Name,
		Picture:   id.Picture,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			return FederatedResult{}, apperr.Wrap(apperr.KindInternal, "create user failed", err)
		}
		// Lost a race with a concurrent sign-up for the same email.
		existing, gerr := s.users.GetByEmail(ctx, id.Email)
		if gerr != nil {
			return FederatedResult{}, apperr.Wrap(apperr.KindInternal, "query failed", gerr)
		}
		res, err := s.signIn(existing)
		return FederatedResult{AuthResult: res}, err
	}
	s.log.Info(ctx, "user created via google", "user_id", u.ID, "google_sub", id.Subject)
	publish(ctx, s.events, s.log, queue.NewEvent(queue.EventUserRegistered, u.ID, s.now()).WithEmail(u.Email))

	res, err := s.signIn(u)
	return FederatedResult{AuthResult: res, IsNew: true}, err
}

// RoleResult is the outcome of a role selection.
type RoleResult struct {
	Role  model.Role
	Token utils.AccessToken
}

// AssignRole performs the one-time move from no role to donor, ngo or
// volunteer and returns a token carrying the new role. Earlier tokens keep
// their old role claim until they expire. Admin is never assignable here.
func (s *AuthService) AssignRole(ctx context.Context, sess Session, requested string) (RoleResult, error) {
	role := model.Role(requested)
	if !role.Assignable() {
		return RoleResult{}, apperr.ErrInvalidRole
	}
	if sess.User.Role != model.RoleUnset {
		return RoleResult{}, apperr.ErrRoleAlreadySet
	}
	if err := s.users.SetRoleIfUnset(ctx, sess.User.ID, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoleAlreadySet):
			return RoleResult{}, apperr.ErrRoleAlreadySet
		case errors.Is(err, repository.ErrNotFound):
			return RoleResult{}, apperr.ErrUserNotFound
		}
		return RoleResult{}, apperr.Wrap(apperr.KindInternal, "set role failed", err)
	}

	tok, err := s.tokens.Issue(sess.User.ID, sess.User.Email, role)
	if err != nil {
		return RoleResult{}, apperr.Wrap(apperr.KindInternal, "issue token failed", err)
	}
	s.log.Info(ctx, "role assigned", "user_id", sess.User.ID, "role", string(role))
	publish(ctx, s.events, s.log, queue.NewEvent(queue.EventRoleAssigned, sess.User.ID, s.now()).WithRole(string(role)))

	return RoleResult{Role: role, Token: tok}, nil
}

// ApproveNGO marks the target user as verified. The caller must already
// have passed the admin gate.
func (s *AuthService) ApproveNGO(ctx context.Context, admin Session, targetID string) error {
	if err := s.users.MarkVerified(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "User not found")
		}
		return apperr.Wrap(apperr.KindInternal, "approve failed", err)
	}
	s.log.Info(ctx, "ngo approved", "user_id", targetID, "admin_id", admin.User.ID)
	publish(ctx, s.events, s.log,
		queue.NewEvent(queue.EventNGOApproved, admin.User.ID, s.now()).WithSubject(targetID))
	return nil
}

func (s *AuthService) signIn(u model.User) (AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.KindInternal, "issue token failed", err)
	}
	return AuthResult{Token: tok, User: u}, nil
}

// placeholderHash returns a bcrypt hash of a random secret, computed on first
// use. A failed attempt is not cached; the next caller tries again.
func (s *AuthService) placeholderHash(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	h, err := s.hasher.Hash(context.WithoutCancel(ctx), newID())
	if err != nil {
		s.log.Error(ctx, "placeholder hash failed", "err", err)
		return ""
	}
	s.dummyHash = h
	return h
}

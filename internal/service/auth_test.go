package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartplate/smartplate/internal/apperr"
	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/provider/google"
	"github.com/smartplate/smartplate/internal/queue"
	"github.com/smartplate/smartplate/internal/utils"
)

func TestRegister_IssuesTokenWithoutRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, res.User.ID)
	require.Equal(t, model.RoleUnset, res.User.Role)
	require.False(t, res.User.IsVerified)

	claims, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.UserID)
	require.Equal(t, model.RoleUnset, claims.Role)
	require.Equal(t, []string{queue.EventUserRegistered}, f.events.types())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "alice@x.com", "Alice 2", "other")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	require.Equal(t, "Email already registered", apperr.ReasonOf(err))
	require.Equal(t, 1, f.users.creates)
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, "Alice@x.com", "Alice", "secret")
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)

	res, err := f.auth.Login(ctx, "alice@x.com", "secret")
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, res.User.ID)

	_, err = f.auth.Login(ctx, "alice@x.com", "wrong")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, errUnknown := f.auth.Login(ctx, "nobody@x.com", "secret")
	require.ErrorIs(t, errUnknown, apperr.ErrInvalidCredentials)
	require.Equal(t, apperr.ReasonOf(err), apperr.ReasonOf(errUnknown))
}

// flakyHasher fails its first Hash call and records the hashes Verify sees.
type flakyHasher struct {
	inner     *utils.PasswordHasher
	mu        sync.Mutex
	hashCalls int
	verified  []string
}

func (h *flakyHasher) Hash(ctx context.Context, plain string) (string, error) {
	h.mu.Lock()
	h.hashCalls++
	first := h.hashCalls == 1
	h.mu.Unlock()
	if first {
		return "", errors.New("entropy source unavailable")
	}
	return h.inner.Hash(ctx, plain)
}

func (h *flakyHasher) Verify(ctx context.Context, hash, plain string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, hash)
	h.mu.Unlock()
	return h.inner.Verify(ctx, hash, plain)
}

func TestLogin_PlaceholderHashRetriedAfterFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	hasher := &flakyHasher{inner: utils.NewPasswordHasher(bcrypt.MinCost, 1)}
	auth := NewAuthService(AuthDeps{Users: f.users, Hasher: hasher, Tokens: f.tokens, Identity: f.idp, Events: f.events})

	for i := 0; i < 3; i++ {
		_, err := auth.Login(ctx, "nobody@x.com", "pw")
		require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	}

	require.Equal(t, 2, hasher.hashCalls, "failed placeholder is recomputed once, then cached")
	require.Len(t, hasher.verified, 3)
	require.Empty(t, hasher.verified[0])
	require.NotEmpty(t, hasher.verified[1])
	require.Equal(t, hasher.verified[1], hasher.verified[2])
}

func TestLogin_FederatedAccountHasNoPassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.idp.id = google.Identity{Email: "g@x.com", EmailVerified: true, Name: "G"}

	_, err := f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "g@x.com", "")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestAuthenticateWithProvider_CreatesThenReuses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.idp.id = google.Identity{Email: "g@x.com", EmailVerified: true, Name: "G", Picture: "https://pic"}

	first, err := f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.NoError(t, err)
	require.True(t, first.IsNew)
	require.Equal(t, "https://pic", first.User.Picture)
	require.False(t, first.User.HasPassword())
	require.Equal(t, model.RoleUnset, first.User.Role)

	// Role state is untouched on later sign-ins.
	require.NoError(t, f.users.SetRoleIfUnset(ctx, first.User.ID, model.RoleVolunteer))

	second, err := f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.Equal(t, first.User.ID, second.User.ID)
	require.Equal(t, model.RoleVolunteer, second.User.Role)

	claims, err := f.tokens.Verify(second.Token.Token)
	require.NoError(t, err)
	require.Equal(t, model.RoleVolunteer, claims.Role)
	require.Equal(t, 1, f.users.creates)
}

func TestAuthenticateWithProvider_ReusesLocalAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	f.idp.id = google.Identity{Email: "alice@x.com", EmailVerified: true}

	res, err := f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.NoError(t, err)
	require.False(t, res.IsNew)
	require.Equal(t, reg.User.ID, res.User.ID)
}

func TestAuthenticateWithProvider_UnverifiedEmailNeverReusesAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "victim@x.com", "Victim", "secret")
	require.NoError(t, err)
	f.idp.id = google.Identity{Subject: "9", Email: "victim@x.com", EmailVerified: false}

	res, err := f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.ErrorIs(t, err, apperr.ErrProviderRejected)
	require.Empty(t, res.Token.Token)
	require.Empty(t, res.User.ID)
	require.Equal(t, 1, f.users.creates)

	// Same for an address nobody has registered yet: no account is created.
	f.idp.id.Email = "new@x.com"
	_, err = f.auth.AuthenticateWithProvider(ctx, "id-token")
	require.ErrorIs(t, err, apperr.ErrProviderRejected)
	require.Equal(t, 1, f.users.creates)
}

func TestAuthenticateWithProvider_Failures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *apperr.Error
	}{
		{"rejected", apperr.ErrProviderRejected, apperr.ErrProviderRejected},
		{"unavailable", apperr.ErrProviderUnavailable, apperr.ErrProviderUnavailable},
		{"unclassified", errors.New("socket closed"), apperr.ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.idp.err = tc.err
			_, err := f.auth.AuthenticateWithProvider(context.Background(), "tok")
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, f.users.creates)
		})
	}
}

func TestAssignRole_OnceOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	sess, err := f.resolver.Resolve(ctx, reg.Token.Token)
	require.NoError(t, err)

	res, err := f.auth.AssignRole(ctx, sess, "ngo")
	require.NoError(t, err)
	require.Equal(t, model.RoleNGO, res.Role)
	claims, err := f.tokens.Verify(res.Token.Token)
	require.NoError(t, err)
	require.Equal(t, model.RoleNGO, claims.Role)

	// Second attempt with a freshly resolved session sees the stored role.
	sess, err = f.resolver.Resolve(ctx, reg.Token.Token)
	require.NoError(t, err)
	_, err = f.auth.AssignRole(ctx, sess, "donor")
	require.ErrorIs(t, err, apperr.ErrRoleAlreadySet)

	// A stale session snapshot still loses at the conditional update.
	stale := sess
	stale.User.Role = model.RoleUnset
	_, err = f.auth.AssignRole(ctx, stale, "donor")
	require.ErrorIs(t, err, apperr.ErrRoleAlreadySet)

	stored, err := f.users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleNGO, stored.Role)
}

func TestAssignRole_InvalidRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	sess, err := f.resolver.Resolve(ctx, reg.Token.Token)
	require.NoError(t, err)

	for _, r := range []string{"admin", "", "NGO", "owner"} {
		_, err := f.auth.AssignRole(ctx, sess, r)
		require.ErrorIs(t, err, apperr.ErrInvalidRole, "role %q", r)
	}

	// admin is InvalidRole even when the role is already set.
	sess.User.Role = model.RoleDonor
	_, err = f.auth.AssignRole(ctx, sess, "admin")
	require.ErrorIs(t, err, apperr.ErrInvalidRole)
}

func TestAssignRole_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
	sess, err := f.resolver.Resolve(ctx, reg.Token.Token)
	require.NoError(t, err)

	const n = 16
	roles := []string{"donor", "ngo", "volunteer"}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		alreadies int
		winner    model.Role
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := f.auth.AssignRole(ctx, sess, roles[i%len(roles)])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
				winner = res.Role
			case errors.Is(err, apperr.ErrRoleAlreadySet):
				alreadies++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, n-1, alreadies)
	stored, err := f.users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Equal(t, winner, stored.Role)
}

func TestApproveNGO(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.users.put(model.User{ID: "bob", Email: "bob@x.com", Role: model.RoleNGO})
	admin := Session{User: model.User{ID: "root", Role: model.RoleAdmin}}

	require.NoError(t, f.auth.ApproveNGO(ctx, admin, "bob"))
	bob, err := f.users.GetByID(ctx, "bob")
	require.NoError(t, err)
	require.True(t, bob.IsVerified)

	err = f.auth.ApproveNGO(ctx, admin, "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Contains(t, f.events.types(), queue.EventNGOApproved)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture()
	f.events.err = errors.New("broker down")

	_, err := f.auth.Register(context.Background(), "alice@x.com", "Alice", "secret")
	require.NoError(t, err)
}

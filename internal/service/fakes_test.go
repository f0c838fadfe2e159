package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartplate/smartplate/internal/model"
	"github.com/smartplate/smartplate/internal/provider/google"
	"github.com/smartplate/smartplate/internal/queue"
	"github.com/smartplate/smartplate/internal/repository"
	"github.com/smartplate/smartplate/internal/utils"
)

// memUsers is an in-memory UserStore with the same semantics as the MySQL
// repository, including the conditional role update.
type memUsers struct {
	mu      sync.Mutex
	byID    map[string]model.User
	creates int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.byID[u.ID] = u
	m.creates++
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) SetRoleIfUnset(_ context.Context, id string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.Role != model.RoleUnset {
		return repository.ErrRoleAlreadySet
	}
	u.Role = role
	m.byID[id] = u
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsVerified = true
	m.byID[id] = u
	return nil
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *memUsers) put(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type fakeIdentity struct {
	id    google.Identity
	err   error
	calls int
}

func (f *fakeIdentity) Verify(context.Context, string) (google.Identity, error) {
	f.calls++
	return f.id, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	users    *memUsers
	idp      *fakeIdentity
	events   *recordingPublisher
	tokens   *utils.TokenIssuer
	auth     *AuthService
	resolver *SessionResolver
}

func newFixture() *fixture {
	f := &fixture{
		users:  newMemUsers(),
		idp:    &fakeIdentity{},
		events: &recordingPublisher{},
		tokens: utils.NewTokenIssuer("test-secret", 24*time.Hour),
	}
	f.auth = NewAuthService(AuthDeps{
		Users:    f.users,
		Hasher:   utils.NewPasswordHasher(bcrypt.MinCost, 4),
		Tokens:   f.tokens,
		Identity: f.idp,
		Events:   f.events,
	})
	f.resolver = NewSessionResolver(f.tokens, f.users)
	return f
}

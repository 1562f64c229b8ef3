package accounts_test

import (
	"context"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserTracker implements accounts.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetUser(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounts.User), args.Error(1)
}

func (m *MockUserTracker) TrackLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// mockIdentity implements accounts.Identity
type mockIdentity struct {
	id    string
	name  string
	email string
}

func (m mockIdentity) ID() string    { return m.id }
func (m mockIdentity) Name() string  { return m.name }
func (m mockIdentity) Email() string { return m.email }

// mockConfig implements accounts.Config with test friendly values
type mockConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func newMockConfig() *mockConfig {
	return &mockConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 1,
		issuer:          "test-issuer",
		audience:        []string{"test-audience"},
	}
}

func (c *mockConfig) GetSigningKey() string           { return c.signingKey }
func (c *mockConfig) GetSigningMethod() string        { return "HS256" }
func (c *mockConfig) GetContextKey() string           { return "app_session" }
func (c *mockConfig) GetTokenExpiration() int         { return c.tokenExpiration }
func (c *mockConfig) GetIssuer() string               { return c.issuer }
func (c *mockConfig) GetAudience() []string           { return c.audience }
func (c *mockConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (c *mockConfig) GetRejectedRouteDefault() string { return "/auth/dashboard" }

// notFoundErr mirrors what the repository returns on a miss, so the
// provider tests exercise the same classification as the real store.
func notFoundErr() error {
	return repository.NewRecordNotFound()
}

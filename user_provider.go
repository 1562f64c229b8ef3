package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserTracker is the store surface the identity provider needs
type UserTracker interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store  UserTracker
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// VerifyIdentity will find the user, compare to the password, and return
// the identity. Unknown emails and wrong passwords produce the same error
// so a caller cannot tell which one happened.
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	// Valid credentials against a deactivated account: no session, no
	// last_login_at stamp. The transport routes into reactivation.
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := u.store.TrackLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return identityFromUser(user), nil
}

func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var user *User
	var err error

	if id, parseErr := uuid.Parse(identifier); parseErr == nil {
		user, err = u.store.GetUser(ctx, id)
	} else {
		user, err = u.store.GetByEmail(ctx, identifier)
	}

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id     string
	name   string
	email  string
	active bool
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Name() string {
	return a.name
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Active() bool {
	return a.active
}

var _ Identity = authIdentity{}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:     user.ID.String(),
		name:   user.Name,
		email:  user.Email,
		active: user.IsActive,
	}
}

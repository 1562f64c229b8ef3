package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// CreateUserMessage creates an account, either through self registration or
// the JSON create endpoint. DOB is optional; values that do not parse as a
// calendar date are skipped, not rejected.
type CreateUserMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	DOB        string `json:"dob"`
	UseHashid  bool
	OnResponse func(*User)
}

func (e CreateUserMessage) Type() string { return "user.create" }

type CreateUserHandler struct {
	repo RepositoryManager
}

func NewCreateUserHandler(repo RepositoryManager) *CreateUserHandler {
	return &CreateUserHandler{repo: repo}
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	if event.Name == "" || event.Email == "" || event.Password == "" {
		return goerrors.New("name, email, and password are required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		now := time.Now()
		user.Name = event.Name
		user.Email = event.Email
		user.PasswordHash = hash
		user.IsActive = true
		user.CreatedAt = &now
		user.UpdatedAt = &now

		if dob, ok := ParseDate(event.DOB); ok {
			user.DOB = dob
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		prepareUserDefaults(user)

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

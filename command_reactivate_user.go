package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ReactivateUserMessage completes the session-less reactivation flow: the
// caller proves ownership of an inactive account with its password and the
// account turns active again. Only updated_at moves; the caller still has
// to log in afterward.
type ReactivateUserMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(*User)
}

func (e ReactivateUserMessage) Type() string { return "user.reactivate" }

type ReactivateUserHandler struct {
	repo RepositoryManager
}

func NewReactivateUserHandler(repo RepositoryManager) *ReactivateUserHandler {
	return &ReactivateUserHandler{repo: repo}
}

func (h *ReactivateUserHandler) Execute(ctx context.Context, event ReactivateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account reactivation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ReactivateUserHandler) execute(ctx context.Context, event ReactivateUserMessage) error {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for reactivation")
		}

		if record.IsActive {
			return ErrAccountAlreadyActive
		}

		if err := ComparePasswordAndHash(event.Password, record.PasswordHash); err != nil {
			return ErrMismatchedHashAndPassword
		}

		if user, err = h.repo.Users().ReactivateTx(ctx, tx, record.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not reactivate user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account reactivation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

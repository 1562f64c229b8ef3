package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeactivateUserMessage soft-deletes an account: the row stays, is_active
// flips off, and both last_login_at and updated_at are stamped.
type DeactivateUserMessage struct {
	ID         uuid.UUID `json:"id"`
	OnResponse func(*User)
}

func (e DeactivateUserMessage) Type() string { return "user.deactivate" }

type DeactivateUserHandler struct {
	repo RepositoryManager
}

func NewDeactivateUserHandler(repo RepositoryManager) *DeactivateUserHandler {
	return &DeactivateUserHandler{repo: repo}
}

func (h *DeactivateUserHandler) Execute(ctx context.Context, event DeactivateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deactivation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeactivateUserHandler) execute(ctx context.Context, event DeactivateUserMessage) error {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetUserTx(ctx, tx, event.ID); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for deactivation")
		}

		var err error
		if user, err = h.repo.Users().DeactivateTx(ctx, tx, event.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not deactivate user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deactivation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

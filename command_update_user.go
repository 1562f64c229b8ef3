package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PatchUserMessage applies a partial update: nil fields are untouched,
// which makes the PATCH contract a structural property of the message.
//
// A password change needs both OldPassword and NewPassword; with only one
// present no password change happens. When the old password fails
// verification the whole patch is rejected, nothing is persisted.
type PatchUserMessage struct {
	ID          uuid.UUID `json:"-"`
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	DOB         *string   `json:"dob"`
	OldPassword *string   `json:"old_password"`
	NewPassword *string   `json:"new_password"`
	IsActive    *bool     `json:"is_active"`
	OnResponse  func(*User)
}

func (e PatchUserMessage) Type() string { return "user.update" }

type UpdateUserHandler struct {
	repo RepositoryManager
}

func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event PatchUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event PatchUserMessage) error {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Users().GetUserTx(ctx, tx, event.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for update")
		}

		if event.Name != nil {
			record.Name = *event.Name
		}

		if event.Email != nil {
			record.Email = *event.Email
		}

		if event.DOB != nil {
			// Unparseable dates are skipped, the rest of the patch still applies.
			if dob, ok := ParseDate(*event.DOB); ok {
				record.DOB = dob
			}
		}

		if event.OldPassword != nil && event.NewPassword != nil {
			if err := ComparePasswordAndHash(*event.OldPassword, record.PasswordHash); err != nil {
				return ErrIncorrectOldPassword
			}

			hash, err := HashPassword(*event.NewPassword)
			if err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return richErr
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
			}

			record.PasswordHash = hash
		}

		if event.IsActive != nil {
			record.IsActive = *event.IsActive
		}

		now := time.Now()
		record.UpdatedAt = &now

		if user, err = h.repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not persist user update")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

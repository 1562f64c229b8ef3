package accounts_test

import (
	"errors"
	"fmt"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestRichErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{
			name:     "Invalid credentials",
			err:      accounts.ErrMismatchedHashAndPassword,
			category: goerrors.CategoryAuth,
			textCode: "INVALID_CREDENTIALS",
		},
		{
			name:     "Duplicate email",
			err:      accounts.ErrDuplicateEmail,
			category: goerrors.CategoryConflict,
			textCode: "DUPLICATE_EMAIL",
		},
		{
			name:     "User not found",
			err:      accounts.ErrUserNotFound,
			category: goerrors.CategoryNotFound,
			textCode: "USER_NOT_FOUND",
		},
		{
			name:     "Account inactive",
			err:      accounts.ErrAccountInactive,
			category: goerrors.CategoryAuth,
			textCode: "ACCOUNT_INACTIVE",
		},
		{
			name:     "Account already active",
			err:      accounts.ErrAccountAlreadyActive,
			category: goerrors.CategoryConflict,
			textCode: "ACCOUNT_ALREADY_ACTIVE",
		},
		{
			name:     "Incorrect old password",
			err:      accounts.ErrIncorrectOldPassword,
			category: goerrors.CategoryValidation,
			textCode: "INCORRECT_OLD_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestCredentialErrorDoesNotLeakWhichFieldFailed(t *testing.T) {
	// A single message for unknown emails and wrong passwords.
	assert.Equal(t, "invalid email or password", accounts.ErrMismatchedHashAndPassword.Message)
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, accounts.IsTokenExpiredError(nil))
	assert.True(t, accounts.IsTokenExpiredError(accounts.ErrTokenExpired))
	assert.True(t, accounts.IsTokenExpiredError(fmt.Errorf("jwt: token is expired by 5m")))
	assert.False(t, accounts.IsTokenExpiredError(errors.New("some other error")))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, accounts.IsMalformedError(nil))
	assert.True(t, accounts.IsMalformedError(accounts.ErrTokenMalformed))
	assert.True(t, accounts.IsMalformedError(errors.New("token is malformed")))
	assert.True(t, accounts.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, accounts.IsMalformedError(errors.New("some other error")))
}

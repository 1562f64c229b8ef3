package accounts

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// ErrNoEmptyString rejects empty passwords before they hit bcrypt
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the single credential failure we surface,
// for unknown emails and wrong passwords alike, so callers cannot
// enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is returned when a create collides with an existing email.
var ErrDuplicateEmail = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_EMAIL").
	WithCode(goerrors.CodeConflict)

// ErrUserNotFound is returned when a lookup misses.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrForbidden is returned when the acting identity does not own the target
// record, or when a write targets a deactivated account.
var ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN").
	WithCode(goerrors.CodeForbidden)

// ErrIncorrectOldPassword rejects a password change whose old password does
// not verify. The whole patch is discarded, not just the password fields.
var ErrIncorrectOldPassword = goerrors.New("old password incorrect", goerrors.CategoryValidation).
	WithTextCode("INCORRECT_OLD_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrAccountInactive is returned on login against a deactivated account,
// so the transport can route into the reactivation flow.
var ErrAccountInactive = goerrors.New("account is deactivated", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_INACTIVE").
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountAlreadyActive short-circuits reactivation of an active account.
var ErrAccountAlreadyActive = goerrors.New("account is already active", goerrors.CategoryConflict).
	WithTextCode("ACCOUNT_ALREADY_ACTIVE").
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is the structured expired token error
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the structured malformed token error
var ErrTokenMalformed = goerrors.New("authentication token malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

package invite

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMalformedRequest        = "MALFORMED_REQUEST"
	TextCodeValidation              = "VALIDATION_ERROR"
	TextCodeInvalidOrExpired        = "INVALID_OR_EXPIRED_CREDENTIAL"
	TextCodeNotificationFailed      = "NOTIFICATION_FAILED"
	TextCodeRepositoryFailure       = "REPOSITORY_FAILURE"
	TextCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
	TextCodeAccountExists           = "ACCOUNT_EXISTS"
	TextCodeAccountAlreadyConfirmed = "ACCOUNT_ALREADY_CONFIRMED"
	TextCodeEmptyPassword           = "EMPTY_PASSWORD"
)

// MessageInvalidOrExpired is the only message clients see for any
// credential failure, whichever sub case caused it.
const MessageInvalidOrExpired = "Invalid or expired confirmation token"

// MessageProcessingError replaces internal failure details in responses
const MessageProcessingError = "Error processing registration"

// ErrMalformedRequest is returned when required fields are missing
var ErrMalformedRequest = goerrors.New("missing or malformed request fields", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedRequest).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidOrExpiredCredential covers unknown, mismatched, expired and consumed tokens
var ErrInvalidOrExpiredCredential = goerrors.New(MessageInvalidOrExpired, goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidOrExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrActivationConflict is returned when another request consumed the
// credential between our read and our conditional write.
var ErrActivationConflict = goerrors.New(MessageInvalidOrExpired, goerrors.CategoryConflict).
	WithTextCode(TextCodeInvalidOrExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrNotificationFailure is reported when delivery fails after state was persisted
var ErrNotificationFailure = goerrors.New("notification delivery failed", goerrors.CategoryExternal).
	WithTextCode(TextCodeNotificationFailed)

// ErrRepositoryFailure hides store errors from clients
var ErrRepositoryFailure = goerrors.New(MessageProcessingError, goerrors.CategoryInternal).
	WithTextCode(TextCodeRepositoryFailure).
	WithCode(goerrors.CodeInternal)

// ErrAccountNotFound is returned when an invitation targets an unknown account
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountExists is returned when creating an account for a taken email
var ErrAccountExists = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(goerrors.CodeConflict)

// ErrAccountAlreadyConfirmed is returned when inviting an active account
var ErrAccountAlreadyConfirmed = goerrors.New("account is already confirmed", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountAlreadyConfirmed).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("password does not match")

// IsInvalidCredential reports whether err is one of the credential errors
// that clients see as "invalid or expired".
func IsInvalidCredential(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidOrExpiredCredential) || errors.Is(err, ErrActivationConflict)
}

// IsRepositoryFailure reports whether err came from the store
func IsRepositoryFailure(err error) bool {
	return err != nil && errors.Is(err, ErrRepositoryFailure)
}

// IsUniqueViolation checks driver errors for a unique constraint failure.
// Messages differ between sqlite and postgres so we match on both.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.IsCategory(err, goerrors.CategoryConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// ValidationFields collects field errors from err, including errors
// combined with errors.Join.
func ValidationFields(err error) goerrors.ValidationErrors {
	var out goerrors.ValidationErrors
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ge, ok := e.(*goerrors.Error); ok && len(ge.ValidationErrors) > 0 {
			out = append(out, ge.ValidationErrors...)
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

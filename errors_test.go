package invite_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	invite "github.com/goliatone/go-auth-invite"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid credential", invite.ErrInvalidOrExpiredCredential, http.StatusBadRequest, invite.MessageInvalidOrExpired},
		{"lost activation race", invite.ErrActivationConflict, http.StatusBadRequest, invite.MessageInvalidOrExpired},
		{"wrapped credential error", fmt.Errorf("confirm: %w", invite.ErrInvalidOrExpiredCredential), http.StatusBadRequest, invite.MessageInvalidOrExpired},
		{"malformed", errors.Join(invite.ErrMalformedRequest, errors.New("bad json")), http.StatusBadRequest, invite.ErrMalformedRequest.Message},
		{"account not found", invite.ErrAccountNotFound, http.StatusNotFound, invite.ErrAccountNotFound.Message},
		{"account exists", invite.ErrAccountExists, http.StatusConflict, invite.ErrAccountExists.Message},
		{"already confirmed", invite.ErrAccountAlreadyConfirmed, http.StatusConflict, invite.ErrAccountAlreadyConfirmed.Message},
		{"admin unauthorized", invite.ErrUnauthorizedAdmin, http.StatusUnauthorized, invite.ErrUnauthorizedAdmin.Message},
		{"repository failure", invite.ErrRepositoryFailure, http.StatusInternalServerError, invite.MessageProcessingError},
		{"unknown error", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, invite.MessageProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := invite.ErrorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.NotContains(t, body.Error.Message, "connection refused")
		})
	}
}

func TestErrorResponseValidationFields(t *testing.T) {
	detail := goerrors.NewValidation("invalid request",
		goerrors.FieldError{Field: "email", Message: "cannot be blank"},
		goerrors.FieldError{Field: "password", Message: "cannot be blank"},
	)
	err := errors.Join(invite.ErrMalformedRequest, detail)

	status, body := invite.ErrorResponse(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, invite.TextCodeMalformedRequest, body.Error.TextCode)
	if assert.Len(t, body.Error.Validation, 2) {
		assert.Equal(t, "email", body.Error.Validation[0].Field)
		assert.Equal(t, "password", body.Error.Validation[1].Field)
	}
}

func TestValidationFieldsNested(t *testing.T) {
	inner := goerrors.NewValidation("invalid", goerrors.FieldError{Field: "token", Message: "cannot be blank"})
	err := fmt.Errorf("outer: %w", errors.Join(errors.New("other"), inner))

	fields := invite.ValidationFields(err)
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "token", fields[0].Field)
	}

	assert.Empty(t, invite.ValidationFields(nil))
	assert.Empty(t, invite.ValidationFields(errors.New("plain")))
}

func TestIsInvalidCredential(t *testing.T) {
	assert.True(t, invite.IsInvalidCredential(invite.ErrInvalidOrExpiredCredential))
	assert.True(t, invite.IsInvalidCredential(invite.ErrActivationConflict))
	assert.False(t, invite.IsInvalidCredential(invite.ErrAccountNotFound))
	assert.False(t, invite.IsInvalidCredential(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, invite.IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: accounts.email (2067)")))
	assert.True(t, invite.IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "accounts_email_key" (SQLSTATE 23505)`)))
	assert.True(t, invite.IsUniqueViolation(goerrors.New("exists", goerrors.CategoryConflict)))
	assert.False(t, invite.IsUniqueViolation(errors.New("no such table: accounts")))
	assert.False(t, invite.IsUniqueViolation(nil))
}

func TestMalformedValidationDetails(t *testing.T) {
	msg := invite.ConfirmRegistrationMessage{}
	err := msg.Validate()

	var verrs validation.Errors
	assert.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "confirmationToken")
	assert.Contains(t, verrs, "email")
	assert.Contains(t, verrs, "password")
}

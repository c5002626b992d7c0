package services

import "github.com/dmitrijs2005/talenthub/internal/common"

// Error is the failure half of every AuthService result. Kind is one of
// common.ErrorValidation, common.ErrorUnauthorized, common.ErrorAlreadyExists
// or common.ErrorInternal, so callers can branch with errors.Is. Message is
// safe to show to clients; Err is the cause and is only logged.
type Error struct {
	Kind    error
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrInvalidCredentials = &Error{Kind: common.ErrorUnauthorized, Message: "Invalid email or password"}

	ErrInvalidVerificationToken = &Error{Kind: common.ErrorUnauthorized, Message: "Invalid or expired verification token"}

	ErrInvalidCode = &Error{Kind: common.ErrorUnauthorized, Message: "Invalid verification code"}

	ErrInvalidRefreshToken = &Error{Kind: common.ErrorUnauthorized, Message: "Invalid or expired refresh token"}

	ErrRefreshTokenRequired = &Error{Kind: common.ErrorValidation, Message: "Refresh token required", Field: "refreshToken"}

	ErrEmailTaken = &Error{Kind: common.ErrorAlreadyExists, Message: "Email already registered", Field: "email"}

	ErrUserNotFound = &Error{Kind: common.ErrorUnauthorized, Message: "User not found"}
)

func validationError(field, message string) *Error {
	return &Error{Kind: common.ErrorValidation, Message: message, Field: field}
}

func internalError(message string, cause error) *Error {
	return &Error{Kind: common.ErrorInternal, Message: message, Err: cause}
}

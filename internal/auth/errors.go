package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeUserExists        = "USER_EXISTS"
	TextCodeInvalidOTP        = "INVALID_OR_EXPIRED_OTP"
	TextCodeInvalidAssertion  = "INVALID_ASSERTION"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeInvalidResetToken = "INVALID_RESET_TOKEN"
	TextCodePasswordMismatch  = "PASSWORD_MISMATCH"
	TextCodeMailDelivery      = "MAIL_DELIVERY_FAILED"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
)

// ErrUserExists is returned when a registration targets an email that is
// already taken. The API contract surfaces this as a 400.
var ErrUserExists = errors.New("user already exists", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeUserExists)

// ErrInvalidCredentials is deliberately undifferentiated: it never reveals
// whether the email exists, has no password credential, or the password
// simply did not match.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCreds)

// ErrInvalidOrExpiredOTP covers every OTP verification failure: unknown
// email, no pending code, wrong code, or expired code.
var ErrInvalidOrExpiredOTP = errors.New("invalid or expired OTP", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidOTP)

// ErrInvalidAssertion is returned when an external identity assertion fails
// signature, issuer, or audience verification, or carries no email claim.
var ErrInvalidAssertion = errors.New("invalid identity assertion", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidAssertion)

// ErrTokenExpired is returned for session tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that are missing, unparseable,
// or carry an invalid signature.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrForbidden is returned when a valid session lacks the required role.
var ErrForbidden = errors.New("insufficient role", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrInvalidResetToken covers unknown, consumed, and expired reset tickets.
var ErrInvalidResetToken = errors.New("invalid or expired reset token", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidResetToken)

// ErrPasswordMismatch is returned when the reset confirmation differs from
// the new password. The ticket is left unconsumed.
var ErrPasswordMismatch = errors.New("passwords do not match", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodePasswordMismatch)

// ErrMailDelivery is returned when the OTP could not be dispatched. The
// pending registration is rolled back so the caller can retry.
var ErrMailDelivery = errors.New("could not deliver notification email", errors.CategoryOperation).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeMailDelivery)

// ErrNoEmptyString guards password hashing from empty input.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

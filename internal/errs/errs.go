// Package errs holds the sentinel errors shared by repositories, services and
// handlers. Handlers map them to HTTP status codes with errors.Is.
package errs

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailNotFound      = errors.New("email record not found")
	ErrCardNotFound       = errors.New("card code not found")
	ErrRechargeNotFound   = errors.New("recharge record not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrConflict           = errors.New("conflict")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAddressTaken       = errors.New("address already in use")
	ErrInsufficientQuota  = errors.New("insufficient quota")
	ErrQuotaLimit         = errors.New("quota exceeds maximum")
	ErrInvalidPrefix      = errors.New("invalid address prefix")
	ErrCardUsed           = errors.New("card code already used")
	ErrCardDisabled       = errors.New("card code disabled")
	ErrCardExpired        = errors.New("card code expired")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrSelfModification   = errors.New("cannot modify own admin account")
	ErrInvalidArgument    = errors.New("invalid argument")
)

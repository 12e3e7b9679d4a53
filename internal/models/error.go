package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Guard policy errors
	ErrAccountLocked  = errors.New("account is temporarily locked")
	ErrRateLimited    = errors.New("too many attempts")
	ErrIPNotAllowed   = errors.New("ip address not allowed")
	ErrSessionExpired = errors.New("session expired")
)

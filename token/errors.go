package token

import "errors"

var (
	// Authorization failures
	ErrUnauthorized = errors.New("token: caller lacks required role")

	// Insufficient-funds failures
	ErrInsufficientBalance   = errors.New("token: balance too low")
	ErrInsufficientAllowance = errors.New("token: allowance too low")

	// Invalid-state failures
	ErrPaused        = errors.New("token: transfers are paused")
	ErrAlreadyPaused = errors.New("token: already paused")
	ErrNotPaused     = errors.New("token: not paused")

	// Invalid-argument failures
	ErrZeroAddress = errors.New("token: zero address not allowed")
	ErrBadAddress  = errors.New("token: malformed address")
	ErrBadAmount   = errors.New("token: malformed amount")
	ErrOverflow    = errors.New("token: amount overflows uint256")
	ErrUnknownRole = errors.New("token: unknown role")

	// Replay errors
	ErrBadEvent = errors.New("token: event cannot be applied")
)

package domain

import "errors"

var (
	// ErrInvalidCredentials covers both "no such user" and "wrong password"
	// at login so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserExists signals registration with a taken email. It is also the
	// error the store surfaces when a unique index rejects a racing insert.
	ErrUserExists = errors.New("user with this email already exists")

	// ErrInvalidResetToken is the single signal for a reset token that is
	// missing, mistyped, expired, or already consumed.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")

	ErrUserNotFound = errors.New("user not found")
)

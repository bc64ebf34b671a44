package services

import (
	"context"
	"strings"
)

// PasswordHasher abstracts the one-way credential hash so services can be
// tested without paying the bcrypt cost.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) error
}

// Mailer dispatches the raw reset code to an account's email address.
// Failures propagate to the caller of ForgotPassword; a reset the user never
// receives must not look like a success.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// NormalizeEmail applies the canonical form used everywhere an email crosses
// the auth boundary: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

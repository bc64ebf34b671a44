package domain

import (
	"context"
	"time"
)

// UserRepository is the persistent account directory the auth core talks to.
//
// Implementations must enforce a unique index on email and a unique index on
// (provider, provider_id) for documents where both are non-empty; those
// indexes are the authoritative guard against the check-then-act races in
// Register and the social find-or-create path. Racing inserts surface as
// ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByProviderIdentity looks an account up by its external identity.
	// Returns ErrUserNotFound on miss.
	GetByProviderIdentity(ctx context.Context, provider Provider, providerID string) (*User, error)

	// UpdateProviderIdentity rebinds an account's provider identity. Used by
	// the reconciler when linking a social login onto an existing account.
	UpdateProviderIdentity(ctx context.Context, id string, provider Provider, providerID string) error

	// SetResetTicket stores a reset ticket (token hash plus expiry) on the
	// account with the given email, replacing any previous ticket.
	SetResetTicket(ctx context.Context, email, tokenHash string, expiry time.Time) error

	// GetByResetTokenHash returns the account holding the given ticket hash
	// with an expiry still in the future, or ErrUserNotFound. The expiry
	// filter lives in the store so expired tickets are indistinguishable
	// from consumed or never-issued ones.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// UpdatePasswordAndClearResetTicket installs a new password hash and
	// removes the reset ticket (hash and expiry together) in one update.
	UpdatePasswordAndClearResetTicket(ctx context.Context, id, passwordHash string) error
}

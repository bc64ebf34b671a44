package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/daccess-app/backend/domain"
	"github.com/daccess-app/backend/internal/federation"
)

// IdentityReconciler maps a one-off social profile onto exactly one local
// account. Lookups short-circuit in order:
//
//  1. exact (provider, providerId) match: the account is returned as-is;
//  2. email match: the account's provider binding is overwritten with the
//     new identity. This is an intentional merge: presenting a matching
//     email via a new provider takes over the binding with no ownership
//     proof beyond the provider having vouched for that email;
//  3. otherwise a new account is created with role "user" and no password.
//
// Concurrent first logins for the same never-seen identity race to step 3;
// the store's unique (provider, provider_id) index is what keeps the pair
// bound to at most one account.
type IdentityReconciler struct {
	users domain.UserRepository
}

func NewIdentityReconciler(users domain.UserRepository) *IdentityReconciler {
	return &IdentityReconciler{users: users}
}

// Reconcile resolves the profile to a local account, creating or linking as
// needed.
func (r *IdentityReconciler) Reconcile(ctx context.Context, provider domain.Provider, info *federation.ExternalUserInfo) (*domain.User, error) {
	user, err := r.users.GetByProviderIdentity(ctx, provider, info.ProviderUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("looking up provider identity: %w", err)
	}

	if email := NormalizeEmail(info.Email); email != "" {
		user, err = r.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := r.users.UpdateProviderIdentity(ctx, user.ID, provider, info.ProviderUserID); err != nil {
				return nil, fmt.Errorf("linking provider identity: %w", err)
			}
			log.Info().
				Str("userID", user.ID).
				Str("provider", string(provider)).
				Msg("Linked social identity to existing account")
			user.Provider = provider
			user.ProviderID = info.ProviderUserID
			return user, nil
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("looking up account by email: %w", err)
		}
	}

	firstName, lastName := splitName(info)
	user = &domain.User{
		Email:      NormalizeEmail(info.Email),
		FirstName:  firstName,
		LastName:   lastName,
		Role:       domain.RoleUser,
		Provider:   provider,
		ProviderID: info.ProviderUserID,
		Profile:    domain.Profile{AvatarURL: info.PictureURL},
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating social account: %w", err)
	}
	log.Info().
		Str("userID", user.ID).
		Str("provider", string(provider)).
		Msg("Created account from social login")
	return user, nil
}

// splitName prefers the structured name fields and falls back to splitting a
// display name on its first space: first token becomes the given name, the
// rest the family name. No name at all yields empty strings.
func splitName(info *federation.ExternalUserInfo) (first, last string) {
	if info.FirstName != "" || info.LastName != "" {
		return info.FirstName, info.LastName
	}
	parts := strings.Fields(info.DisplayName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

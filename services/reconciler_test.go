package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daccess-app/backend/domain"
	"github.com/daccess-app/backend/internal/federation"
)

func TestReconciler_CreatesAccountOnFirstLogin(t *testing.T) {
	repo := newMemoryUserRepo()
	r := NewIdentityReconciler(repo)

	user, err := r.Reconcile(context.Background(), domain.ProviderGoogle, &federation.ExternalUserInfo{
		ProviderUserID: "goog-1",
		Email:          "Ana@Example.com",
		FirstName:      "Ana",
		LastName:       "Silva",
		PictureURL:     "https://lh3.example/ana.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.ProviderGoogle, user.Provider)
	assert.Equal(t, "goog-1", user.ProviderID)
	assert.Empty(t, user.PasswordHash, "social accounts have no password")
	assert.Equal(t, "https://lh3.example/ana.jpg", user.Profile.AvatarURL)
}

func TestReconciler_ReturnsExistingAccountByProviderIdentity(t *testing.T) {
	repo := newMemoryUserRepo()
	r := NewIdentityReconciler(repo)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, domain.ProviderFacebook, &federation.ExternalUserInfo{
		ProviderUserID: "fb-1",
		Email:          "ana@example.com",
	})
	require.NoError(t, err)

	// The profile email changing upstream does not fork the account; the
	// (provider, id) match wins before any email lookup.
	second, err := r.Reconcile(ctx, domain.ProviderFacebook, &federation.ExternalUserInfo{
		ProviderUserID: "fb-1",
		Email:          "renamed@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ana@example.com", second.Email)
	assert.Equal(t, 1, repo.count())
}

func TestReconciler_LinksByEmailAndRebindsProvider(t *testing.T) {
	repo := newMemoryUserRepo()
	r := NewIdentityReconciler(repo)
	ctx := context.Background()

	local := &domain.User{
		Email:        "ana@example.com",
		PasswordHash: "$2a$04$existinghash",
		Role:         domain.RoleUser,
		Provider:     domain.ProviderLocal,
	}
	require.NoError(t, repo.Create(ctx, local))

	linked, err := r.Reconcile(ctx, domain.ProviderApple, &federation.ExternalUserInfo{
		ProviderUserID: "apple-9",
		Email:          "ANA@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, local.ID, linked.ID)
	assert.Equal(t, domain.ProviderApple, linked.Provider)
	assert.Equal(t, "apple-9", linked.ProviderID)
	assert.Equal(t, 1, repo.count())

	stored, err := repo.GetByID(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderApple, stored.Provider)
	assert.Equal(t, "$2a$04$existinghash", stored.PasswordHash, "linking keeps the local password")
}

func TestReconciler_CreatesAccountWithoutEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	r := NewIdentityReconciler(repo)

	// Apple withholds the email on relaunches after the first consent.
	user, err := r.Reconcile(context.Background(), domain.ProviderApple, &federation.ExternalUserInfo{
		ProviderUserID: "apple-1",
	})
	require.NoError(t, err)
	assert.Empty(t, user.Email)
	assert.Equal(t, "apple-1", user.ProviderID)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name  string
		info  federation.ExternalUserInfo
		first string
		last  string
	}{
		{
			name:  "structured names win",
			info:  federation.ExternalUserInfo{FirstName: "Ana", LastName: "Silva", DisplayName: "Someone Else"},
			first: "Ana",
			last:  "Silva",
		},
		{
			name:  "display name splits on first space",
			info:  federation.ExternalUserInfo{DisplayName: "Ana Maria Silva"},
			first: "Ana",
			last:  "Maria Silva",
		},
		{
			name:  "single token has no family name",
			info:  federation.ExternalUserInfo{DisplayName: "Ana"},
			first: "Ana",
			last:  "",
		},
		{
			name: "no name at all",
			info: federation.ExternalUserInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitName(&tt.info)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"

	"github.com/daccess-app/backend/domain"
	"github.com/daccess-app/backend/internal/auth"
	"github.com/daccess-app/backend/internal/federation"
)

// forgotPasswordMessage is returned whether or not the email exists, so the
// endpoint cannot be used to enumerate accounts.
const forgotPasswordMessage = "If that email exists, a reset code has been sent."

const userCacheTTL = time.Minute

// LoginResult is the successful outcome of Login and Register.
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user"`
}

// AuthService is the auth orchestrator: it composes the credential hasher,
// reset token codec, identity reconciler, token issuer, user directory and
// mailer behind the five auth operations.
type AuthService struct {
	users      domain.UserRepository
	hasher     PasswordHasher
	tokens     *TokenService
	reset      *auth.ResetTokenCodec
	mailer     Mailer
	reconciler *IdentityReconciler

	// userCache serves repeated /auth/me lookups within a token's lifetime
	// without a directory round trip per request.
	userCache *ttlcache.Cache[string, *domain.User]
}

func NewAuthService(
	users domain.UserRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	reset *auth.ResetTokenCodec,
	mailer Mailer,
	reconciler *IdentityReconciler,
) *AuthService {
	cache := ttlcache.New[string, *domain.User](
		ttlcache.WithTTL[string, *domain.User](userCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.User](),
	)
	go cache.Start()

	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		reset:      reset,
		mailer:     mailer,
		reconciler: reconciler,
		userCache:  cache,
	}
}

// Close stops background cache expiry.
func (s *AuthService) Close() {
	s.userCache.Stop()
}

// Login validates credentials and issues a bearer token. A missing account
// and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			log.Warn().Str("email", email).Msg("Login: user not found")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		log.Warn().Str("userID", user.ID).Msg("Login: incorrect password")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("issuing bearer token: %w", err)
	}
	log.Info().Str("userID", user.ID).Msg("Login successful")
	return &LoginResult{AccessToken: token, User: user.Sanitized()}, nil
}

// Register creates a local account and immediately logs it in. The role is
// always "user" regardless of anything the client sent.
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("checking for existing account: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleUser,
		Provider:     domain.ProviderLocal,
	}
	// The duplicate check above races with concurrent registrations; the
	// store's unique email index settles it and surfaces ErrUserExists.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Info().Str("userID", user.ID).Str("email", email).Msg("Account registered")

	token, err := s.tokens.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("issuing bearer token: %w", err)
	}
	return &LoginResult{AccessToken: token, User: user.Sanitized()}, nil
}

// SocialLogin resolves the provider profile to exactly one account and
// issues a bearer token for it. The caller fetches the account via /auth/me.
func (s *AuthService) SocialLogin(ctx context.Context, provider domain.Provider, profile *federation.ExternalUserInfo) (string, error) {
	user, err := s.reconciler.Reconcile(ctx, provider, profile)
	if err != nil {
		return "", err
	}
	token, err := s.tokens.Sign(user)
	if err != nil {
		return "", fmt.Errorf("issuing bearer token: %w", err)
	}
	log.Info().Str("userID", user.ID).Str("provider", string(provider)).Msg("Social login successful")
	return token, nil
}

// ForgotPassword issues a reset ticket and mails the raw code. The returned
// message is identical whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return forgotPasswordMessage, nil
		}
		return "", fmt.Errorf("looking up account: %w", err)
	}

	raw, tokenHash, expiry, err := s.reset.Issue()
	if err != nil {
		return "", err
	}
	if err := s.users.SetResetTicket(ctx, user.Email, tokenHash, expiry); err != nil {
		return "", fmt.Errorf("storing reset ticket: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		return "", fmt.Errorf("sending reset email: %w", err)
	}
	log.Info().Str("userID", user.ID).Msg("Password reset ticket issued")
	return forgotPasswordMessage, nil
}

// ResetPassword consumes a reset ticket. Wrong, expired, and already-used
// tokens all collapse to the same lookup miss.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	user, err := s.users.GetByResetTokenHash(ctx, s.reset.LookupHash(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidResetToken
		}
		return fmt.Errorf("looking up reset ticket: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePasswordAndClearResetTicket(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	s.userCache.Delete(user.ID)
	log.Info().Str("userID", user.ID).Msg("Password reset")
	return nil
}

// UserFromToken verifies a bearer token and loads its account, serving
// repeats from the in-process cache.
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if item := s.userCache.Get(claims.Subject); item != nil {
		return item.Value(), nil
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}
	sanitized := user.Sanitized()
	s.userCache.Set(claims.Subject, sanitized, ttlcache.DefaultTTL)
	return sanitized, nil
}

package federation

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/daccess-app/backend/domain"
)

const (
	appleAuthURL  = "https://appleid.apple.com/auth/authorize"
	appleTokenURL = "https://appleid.apple.com/auth/token"
	appleIssuer   = "https://appleid.apple.com"

	// Apple accepts client secrets valid up to six months; a short window
	// keeps a leaked secret near-worthless.
	appleClientSecretTTL = 5 * time.Minute
)

// AppleProvider implements OAuth2Provider for Sign in with Apple. Apple has
// no userinfo endpoint: the profile is carried in the id_token of the code
// exchange, and name/email appear only on the first authorization. The
// client secret is not static either; it is an ES256 JWT minted per
// exchange from the developer key.
type AppleProvider struct {
	clientID   string
	teamID     string
	keyID      string
	privateKey *ecdsa.PrivateKey
	conf       *oauth2.Config
}

func NewAppleProvider(cfg ProviderConfig) (*AppleProvider, error) {
	if cfg.ClientID == "" || cfg.TeamID == "" || cfg.KeyID == "" || cfg.PrivateKeyPEM == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("apple: %w", ErrProviderMisconfigured)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("apple: parsing private key: %w", err)
	}
	return &AppleProvider{
		clientID:   cfg.ClientID,
		teamID:     cfg.TeamID,
		keyID:      cfg.KeyID,
		privateKey: key,
		conf: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      []string{"name", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   appleAuthURL,
				TokenURL:  appleTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}, nil
}

func (a *AppleProvider) Name() domain.Provider { return domain.ProviderApple }

func (a *AppleProvider) AuthCodeURL(state string) string {
	// response_mode=form_post is mandatory when the name or email scope is
	// requested.
	return a.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "form_post"))
}

// clientSecret mints the ES256 client secret JWT Apple expects instead of a
// static secret.
func (a *AppleProvider) clientSecret() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    a.teamID,
		Subject:   a.clientID,
		Audience:  jwt.ClaimStrings{appleIssuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appleClientSecretTTL)),
	})
	token.Header["kid"] = a.keyID
	secret, err := token.SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("apple: signing client secret: %w", err)
	}
	return secret, nil
}

func (a *AppleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	secret, err := a.clientSecret()
	if err != nil {
		return nil, err
	}
	conf := *a.conf
	conf.ClientSecret = secret

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeCodeFailed, err)
	}
	return tok, nil
}

// FetchUserInfo parses the id_token from the exchange response. The token
// was just received over TLS directly from Apple's token endpoint, so its
// claims are read without a second signature check against Apple's JWKS.
func (a *AppleProvider) FetchUserInfo(_ context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%w: apple response carried no id_token", ErrFetchUserInfoFailed)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("%w: parsing apple id_token: %v", ErrFetchUserInfoFailed, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: apple id_token carried no subject", ErrFetchUserInfoFailed)
	}
	email, _ := claims["email"].(string)

	// Name is only posted on first authorization (and via a separate form
	// field the handshake does not surface); later logins degrade to empty
	// names and the reconciler matches on (provider, providerUserId).
	return &ExternalUserInfo{
		ProviderUserID: sub,
		Email:          email,
	}, nil
}

package federation

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/daccess-app/backend/domain"
)

// ExternalUserInfo is the normalized profile an OAuth2 provider hands back
// after a successful handshake. Name and email fields may be empty (Apple
// withholds both after the first authorization; privacy relays withhold
// email); consumers must degrade gracefully instead of failing.
type ExternalUserInfo struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	DisplayName    string
	PictureURL     string
}

// OAuth2Provider is one external identity source.
type OAuth2Provider interface {
	Name() domain.Provider

	// AuthCodeURL builds the URL the user is redirected to, carrying the
	// opaque state through the provider round trip.
	AuthCodeURL(state string) string

	// Exchange trades the callback authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserInfo resolves the provider token into a normalized profile.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)
}

// ProviderConfig holds the credentials a provider is constructed from.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Apple only.
	TeamID        string
	KeyID         string
	PrivateKeyPEM string
}

// Registry holds the providers enabled at startup. Lookups for providers
// that were never registered fail with ErrProviderDisabled.
type Registry struct {
	providers map[domain.Provider]OAuth2Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.Provider]OAuth2Provider)}
}

func (r *Registry) Register(p OAuth2Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Provider(name domain.Provider) (OAuth2Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderDisabled
	}
	return p, nil
}

func (r *Registry) Enabled(name domain.Provider) bool {
	_, ok := r.providers[name]
	return ok
}

// baseProvider carries the shared oauth2.Config plumbing.
type baseProvider struct {
	name domain.Provider
	conf *oauth2.Config
}

func (b *baseProvider) Name() domain.Provider { return b.name }

func (b *baseProvider) AuthCodeURL(state string) string {
	return b.conf.AuthCodeURL(state)
}

func (b *baseProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := b.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeCodeFailed, err)
	}
	return tok, nil
}

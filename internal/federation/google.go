package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"

	"github.com/daccess-app/backend/domain"
)

var googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements OAuth2Provider for Google's OIDC userinfo flow.
type GoogleProvider struct {
	baseProvider
}

func NewGoogleProvider(cfg ProviderConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("google: %w", ErrProviderMisconfigured)
	}
	return &GoogleProvider{baseProvider{
		name: domain.ProviderGoogle,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     googleOAuth2.Endpoint,
		},
	}}, nil
}

func (g *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := g.conf.Client(ctx, token)
	resp, err := client.Get(googleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: google returned status %d: %s", ErrFetchUserInfoFailed, resp.StatusCode, body)
	}

	var raw struct {
		Sub        string `json:"sub"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
		Email      string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding google userinfo: %v", ErrFetchUserInfoFailed, err)
	}

	return &ExternalUserInfo{
		ProviderUserID: raw.Sub,
		Email:          raw.Email,
		FirstName:      raw.GivenName,
		LastName:       raw.FamilyName,
		DisplayName:    raw.Name,
		PictureURL:     raw.Picture,
	}, nil
}

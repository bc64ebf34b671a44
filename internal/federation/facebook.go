package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	facebookOAuth2 "golang.org/x/oauth2/facebook"

	"github.com/daccess-app/backend/domain"
)

var facebookUserInfoEndpoint = "https://graph.facebook.com/me?fields=id,name,first_name,last_name,email,picture"

// FacebookProvider implements OAuth2Provider against the Graph API.
type FacebookProvider struct {
	baseProvider
}

func NewFacebookProvider(cfg ProviderConfig) (*FacebookProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("facebook: %w", ErrProviderMisconfigured)
	}
	return &FacebookProvider{baseProvider{
		name: domain.ProviderFacebook,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"public_profile", "email"},
			Endpoint:     facebookOAuth2.Endpoint,
		},
	}}, nil
}

func (f *FacebookProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := f.conf.Client(ctx, token)
	resp, err := client.Get(facebookUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: facebook returned status %d: %s", ErrFetchUserInfoFailed, resp.StatusCode, body)
	}

	// Facebook may omit email entirely when the user registered with a
	// phone number or denied the email permission.
	var raw struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding facebook profile: %v", ErrFetchUserInfoFailed, err)
	}

	return &ExternalUserInfo{
		ProviderUserID: raw.ID,
		Email:          raw.Email,
		FirstName:      raw.FirstName,
		LastName:       raw.LastName,
		DisplayName:    raw.Name,
		PictureURL:     raw.Picture.Data.URL,
	}, nil
}

package federation

import "errors"

var (
	// ErrProviderDisabled is returned for providers that are known but not
	// enabled in configuration. Disabled providers reject callbacks outright
	// instead of attempting a handshake with placeholder credentials.
	ErrProviderDisabled = errors.New("identity provider is not enabled")

	ErrProviderMisconfigured = errors.New("identity provider is misconfigured")
	ErrInvalidAuthState      = errors.New("invalid or expired oauth state")
	ErrExchangeCodeFailed    = errors.New("failed to exchange authorization code")
	ErrFetchUserInfoFailed   = errors.New("failed to fetch user info from provider")
)

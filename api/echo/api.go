package echo

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/daccess-app/backend/domain"
	"github.com/daccess-app/backend/internal/federation"
	"github.com/daccess-app/backend/services"
)

// AuthAPI exposes the authentication HTTP surface the mobile app calls.
type AuthAPI struct {
	auth      *services.AuthService
	providers *federation.Registry
	state     *federation.StateCodec
	healthDB  func(ctx context.Context) error
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(
	auth *services.AuthService,
	providers *federation.Registry,
	state *federation.StateCodec,
	healthDB func(ctx context.Context) error,
) *AuthAPI {
	return &AuthAPI{
		auth:      auth,
		providers: providers,
		state:     state,
		healthDB:  healthDB,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", a.LoginHandler)
	e.POST("/auth/register", a.RegisterHandler)
	e.POST("/auth/forgot-password", a.ForgotPasswordHandler)
	e.POST("/auth/reset-password", a.ResetPasswordHandler)
	e.GET("/auth/me", a.MeHandler)

	e.GET("/auth/:provider", a.SocialLoginHandler)
	e.GET("/auth/:provider/callback", a.SocialCallbackHandler)
	// Apple posts the callback (response_mode=form_post).
	e.POST("/auth/:provider/callback", a.SocialCallbackHandler)

	e.GET("/healthz", a.HealthHandler)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// A client-supplied role is deliberately not part of this payload;
	// anything extra in the body is dropped at binding.
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// LoginHandler handles POST /auth/login.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	result, err := a.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// RegisterHandler handles POST /auth/register.
func (a *AuthAPI) RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "a valid email is required")
	}
	if len(req.Password) < 6 {
		return badRequest(c, "password must be at least 6 characters")
	}

	result, err := a.auth.Register(c.Request().Context(),
		req.Email, req.Password,
		strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	if err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// ForgotPasswordHandler handles POST /auth/forgot-password. The response is
// identical whether or not the account exists.
func (a *AuthAPI) ForgotPasswordHandler(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Email == "" {
		return badRequest(c, "email is required")
	}

	message, err := a.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}

// ResetPasswordHandler handles POST /auth/reset-password.
func (a *AuthAPI) ResetPasswordHandler(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Token == "" {
		return badRequest(c, "token is required")
	}
	if len(req.NewPassword) < 6 {
		return badRequest(c, "password must be at least 6 characters")
	}

	if err := a.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully."})
}

// MeHandler handles GET /auth/me for bearer-authenticated clients.
func (a *AuthAPI) MeHandler(c echo.Context) error {
	token, ok := bearerToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing_token"})
	}
	user, err := a.auth.UserFromToken(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
		}
		return a.mapError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// SocialLoginHandler handles GET /auth/:provider. It redirects the user to
// the provider's consent screen with the app's deep link signed into the
// state parameter.
func (a *AuthAPI) SocialLoginHandler(c echo.Context) error {
	provider, err := a.provider(c)
	if err != nil {
		return err
	}

	state, err := a.state.Encode(c.QueryParam("redirect"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode oauth state")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// SocialCallbackHandler handles the provider callback: it verifies the
// state, finishes the handshake, reconciles the profile into an account and
// redirects back into the app with the bearer token appended.
func (a *AuthAPI) SocialCallbackHandler(c echo.Context) error {
	provider, err := a.provider(c)
	if err != nil {
		return err
	}

	redirect, err := a.state.Decode(callbackParam(c, "state"))
	if err != nil {
		return badRequest(c, "invalid or expired oauth state")
	}
	if errParam := callbackParam(c, "error"); errParam != "" {
		log.Warn().Str("provider", string(provider.Name())).Str("error", errParam).Msg("Provider returned an error")
		return c.Redirect(http.StatusFound, redirect+"?error="+url.QueryEscape(errParam))
	}
	code := callbackParam(c, "code")
	if code == "" {
		return badRequest(c, "missing authorization code")
	}

	ctx := c.Request().Context()
	token, err := provider.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider.Name())).Msg("Code exchange failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "provider_exchange_failed"})
	}
	profile, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider.Name())).Msg("Fetching user info failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "provider_profile_failed"})
	}

	accessToken, err := a.auth.SocialLogin(ctx, provider.Name(), profile)
	if err != nil {
		return a.mapError(c, err)
	}
	return c.Redirect(http.StatusFound, redirect+"?token="+url.QueryEscape(accessToken))
}

// HealthHandler reports liveness of the server and its database.
func (a *AuthAPI) HealthHandler(c echo.Context) error {
	if err := a.healthDB(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// provider resolves the :provider path parameter against the registry.
func (a *AuthAPI) provider(c echo.Context) (federation.OAuth2Provider, error) {
	name := domain.Provider(c.Param("provider"))
	if !domain.KnownProvider(name) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_provider"})
	}
	p, err := a.providers.Provider(name)
	if err != nil {
		// Known but disabled: a configuration state, not a client mistake.
		return nil, c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error":             "provider_disabled",
			"error_description": string(name) + " login is not enabled on this server",
		})
	}
	return p, nil
}

func (a *AuthAPI) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid credentials"})
	case errors.Is(err, domain.ErrUserExists):
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User already exists"})
	case errors.Is(err, domain.ErrInvalidResetToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired reset token."})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
}

// callbackParam reads a callback parameter from the query string (Google,
// Facebook) or the posted form (Apple).
func callbackParam(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	authapi "github.com/daccess-app/backend/api/echo"
	"github.com/daccess-app/backend/config"
	"github.com/daccess-app/backend/internal/auth"
	"github.com/daccess-app/backend/internal/federation"
	"github.com/daccess-app/backend/internal/mail"
	"github.com/daccess-app/backend/mongodb"
	"github.com/daccess-app/backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if parseErr != nil {
		zlog.Warn().Str("configured_log_level", cfg.LogLevel).Msg("Invalid LOG_LEVEL, defaulting to info")
	}

	zlog.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Bool("google", cfg.Google.Enabled).
		Bool("facebook", cfg.Facebook.Enabled).
		Bool("apple", cfg.Apple.Enabled).
		Msg("Starting daccess auth server")

	ctx := context.Background()
	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	userRepo, err := mongodb.NewUserRepository(ctx, db.DB())
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize user repository")
	}

	tokenService, err := services.NewTokenService(
		cfg.JWTSecret,
		cfg.PublicBaseURL,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
	)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize token service")
	}

	hasher := auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
	resetCodec := auth.NewResetTokenCodec(time.Duration(cfg.ResetTokenTTLMin) * time.Minute)
	mailer := mail.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	reconciler := services.NewIdentityReconciler(userRepo)
	authService := services.NewAuthService(userRepo, hasher, tokenService, resetCodec, mailer, reconciler)
	defer authService.Close()

	providers := buildProviderRegistry(cfg)
	stateCodec := federation.NewStateCodec(cfg.JWTSecret, cfg.DefaultRedirectURI)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	api := authapi.NewAuthAPI(authService, providers, stateCodec, db.Ping)
	api.RegisterRoutes(e)

	go func() {
		zlog.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zlog.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("HTTP server shutdown error")
	}
	db.Close(shutdownCtx)
	zlog.Info().Msg("Server gracefully stopped")
}

// buildProviderRegistry registers each provider that is enabled and fully
// configured. Disabled providers are simply absent; their callbacks fail
// with a clear error instead of a handshake against placeholder
// credentials.
func buildProviderRegistry(cfg *config.ServerConfig) *federation.Registry {
	registry := federation.NewRegistry()

	if cfg.Google.Enabled {
		p, err := federation.NewGoogleProvider(federation.ProviderConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.CallbackURL("google"),
		})
		if err != nil {
			zlog.Fatal().Err(err).Msg("Failed to configure google login")
		}
		registry.Register(p)
	}

	if cfg.Facebook.Enabled {
		p, err := federation.NewFacebookProvider(federation.ProviderConfig{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			RedirectURL:  cfg.CallbackURL("facebook"),
		})
		if err != nil {
			zlog.Fatal().Err(err).Msg("Failed to configure facebook login")
		}
		registry.Register(p)
	}

	if cfg.Apple.Enabled {
		pem, err := os.ReadFile(cfg.Apple.PrivateKeyPath)
		if err != nil {
			zlog.Fatal().Err(err).Str("path", cfg.Apple.PrivateKeyPath).Msg("Failed to read apple private key")
		}
		p, err := federation.NewAppleProvider(federation.ProviderConfig{
			ClientID:      cfg.Apple.ClientID,
			TeamID:        cfg.Apple.TeamID,
			KeyID:         cfg.Apple.KeyID,
			PrivateKeyPEM: string(pem),
			RedirectURL:   cfg.CallbackURL("apple"),
		})
		if err != nil {
			zlog.Fatal().Err(err).Msg("Failed to configure apple login")
		}
		registry.Register(p)
	}

	return registry
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// OAuthProviderConfig is the startup configuration of one social provider.
// A provider is either enabled with complete credentials or not registered
// at all; there is no half-configured mode.
type OAuthProviderConfig struct {
	Enabled      bool   `mapstructure:"ENABLED"`
	ClientID     string `mapstructure:"CLIENT_ID"`
	ClientSecret string `mapstructure:"CLIENT_SECRET"`
}

// AppleConfig carries the extra signing material Sign in with Apple needs.
type AppleConfig struct {
	Enabled        bool   `mapstructure:"ENABLED"`
	ClientID       string `mapstructure:"CLIENT_ID"`
	TeamID         string `mapstructure:"TEAM_ID"`
	KeyID          string `mapstructure:"KEY_ID"`
	PrivateKeyPath string `mapstructure:"PRIVATE_KEY_PATH"`
}

// MailConfig configures the SMTP relay used for password-reset codes.
type MailConfig struct {
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	Username string `mapstructure:"USERNAME"`
	Password string `mapstructure:"PASSWORD"`
	From     string `mapstructure:"FROM"`
}

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// PublicBaseURL is the externally reachable base of this server; OAuth
	// callback URLs are derived from it.
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// DefaultRedirectURI is the app deep link used when a social login does
	// not carry its own redirect.
	DefaultRedirectURI string `mapstructure:"DEFAULT_REDIRECT_URI"`

	JWTSecret         string `mapstructure:"JWT_SECRET"`
	AccessTokenTTLMin int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	ResetTokenTTLMin  int    `mapstructure:"RESET_TOKEN_TTL_MIN"`

	Mail     MailConfig          `mapstructure:"MAIL"`
	Google   OAuthProviderConfig `mapstructure:"GOOGLE"`
	Facebook OAuthProviderConfig `mapstructure:"FACEBOOK"`
	Apple    AppleConfig         `mapstructure:"APPLE"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults, then validates it. Validation failures are fatal configuration
// errors, not conditions to paper over at request time.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/daccess/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "3000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/daccess")
	v.SetDefault("MONGO_DB_NAME", "daccess")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_REDIRECT_URI", "daccess://auth/callback")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("RESET_TOKEN_TTL_MIN", 15)
	v.SetDefault("MAIL.HOST", "smtp.gmail.com")
	v.SetDefault("MAIL.PORT", 587)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServerConfig) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set; refusing to start without a signing secret")
	}
	if c.Google.Enabled && (c.Google.ClientID == "" || c.Google.ClientSecret == "") {
		return errors.New("google login is enabled but GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET are not fully configured")
	}
	if c.Facebook.Enabled && (c.Facebook.ClientID == "" || c.Facebook.ClientSecret == "") {
		return errors.New("facebook login is enabled but FACEBOOK_CLIENT_ID/FACEBOOK_CLIENT_SECRET are not fully configured")
	}
	if c.Apple.Enabled && (c.Apple.ClientID == "" || c.Apple.TeamID == "" || c.Apple.KeyID == "" || c.Apple.PrivateKeyPath == "") {
		return errors.New("apple login is enabled but APPLE_CLIENT_ID/APPLE_TEAM_ID/APPLE_KEY_ID/APPLE_PRIVATE_KEY_PATH are not fully configured")
	}
	return nil
}

// CallbackURL derives the OAuth callback for a provider from the public
// base URL.
func (c *ServerConfig) CallbackURL(provider string) string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/auth/" + provider + "/callback"
}

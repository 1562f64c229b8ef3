package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config aggregates the runtime settings for the accounts server.
type Config struct {
	AppName     string
	Environment string
	Debug       bool
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	// DSN is the sqlite data source, file path or ":memory:".
	DSN string
}

type AuthConfig struct {
	SigningKey           string
	SigningMethod        string
	ContextKey           string
	TokenExpiration      int
	Issuer               string
	Audience             []string
	RejectedRouteKey     string
	RejectedRouteDefault string
}

type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot without any of them set.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "go-accounts"),
		Environment: getString("APP_ENV", "development"),
		Debug:       getBool("APP_DEBUG", false),
		HTTP: HTTPConfig{
			Host: getString("SERVER_HOST", "0.0.0.0"),
			Port: getString("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN: getString("DATABASE_DSN", "file:accounts.db?cache=shared&_pragma=foreign_keys(1)"),
		},
		Auth: AuthConfig{
			SigningKey:           getString("AUTH_SIGNING_KEY", "change-me-in-production"),
			SigningMethod:        getString("AUTH_SIGNING_METHOD", "HS256"),
			ContextKey:           getString("AUTH_CONTEXT_KEY", "app_session"),
			TokenExpiration:      getInt("AUTH_TOKEN_EXPIRATION", 24),
			Issuer:               getString("AUTH_ISSUER", "go-accounts"),
			Audience:             getSlice("AUTH_AUDIENCE", []string{"go-accounts"}),
			RejectedRouteKey:     getString("AUTH_REJECTED_ROUTE_KEY", "rejected_route"),
			RejectedRouteDefault: getString("AUTH_REJECTED_ROUTE_DEFAULT", "/auth/dashboard"),
		},
		Logger: LoggerConfig{
			Level: getString("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetSigningMethod() string {
	return c.Auth.SigningMethod
}

func (c *Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *Config) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c *Config) GetRejectedRouteKey() string {
	return c.Auth.RejectedRouteKey
}

func (c *Config) GetRejectedRouteDefault() string {
	return c.Auth.RejectedRouteDefault
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getSlice(key string, fallback []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

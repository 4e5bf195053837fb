// Package config loads and validates environment-based configuration
// for session-sync. The GitHub OAuth application credentials are the
// only required settings; everything else has defaults.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// DefaultCallbackURL is used when GITHUB_CALLBACK_URL is not set.
	// The port is re-bound dynamically at flow time (8080-8089) and
	// substituted into the redirect URI actually sent to GitHub.
	DefaultCallbackURL = "http://localhost:8080/auth/github/callback"

	// AuthorizeURL is GitHub's OAuth authorization endpoint.
	AuthorizeURL = "https://github.com/login/oauth/authorize"

	// TokenURL is GitHub's OAuth token exchange endpoint.
	TokenURL = "https://github.com/login/oauth/access_token"

	// Scope is the single OAuth scope requested. Managing the private
	// storage gist needs nothing beyond "gist".
	Scope = "gist"
)

// Length bounds for OAuth application credentials. GitHub client IDs are
// 20 characters and secrets 40, but the bounds are kept loose enough to
// survive format changes while still catching truncated or swapped values.
const (
	clientIDMinLen     = 8
	clientIDMaxLen     = 64
	clientSecretMinLen = 16
	clientSecretMaxLen = 128
)

// Config holds all environment-based configuration for session-sync.
// It is constructed once at process start, validated, and passed by
// reference; protocol code never reads the environment directly.
type Config struct {
	// GitHub OAuth application credentials (required).
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	// OAuth callback URL. Must be localhost or HTTPS.
	CallbackURL string `env:"GITHUB_CALLBACK_URL"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// OAuth endpoints. Fixed to GitHub's in normal operation;
	// overridable so tests can point the flow at a local server.
	AuthorizeURL string `env:"-"`
	TokenURL     string `env:"-"`

	// Scopes requested during authorization.
	Scopes []string `env:"-"`
}

// FieldError reports a configuration problem with a specific field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Reason)
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the OAuth client secret to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
// No network access happens here.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.CallbackURL == "" {
		cfg.CallbackURL = DefaultCallbackURL
	}

	cfg.AuthorizeURL = AuthorizeURL
	cfg.TokenURL = TokenURL
	cfg.Scopes = []string{Scope}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all fields against their bounds. It returns a
// *FieldError naming the first offending field.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return &FieldError{Field: "GITHUB_CLIENT_ID", Reason: "not set"}
	}

	if len(c.ClientID) < clientIDMinLen || len(c.ClientID) > clientIDMaxLen {
		return &FieldError{
			Field:  "GITHUB_CLIENT_ID",
			Reason: fmt.Sprintf("length %d outside %d-%d", len(c.ClientID), clientIDMinLen, clientIDMaxLen),
		}
	}

	if c.ClientSecret == "" {
		return &FieldError{Field: "GITHUB_CLIENT_SECRET", Reason: "not set"}
	}

	if len(c.ClientSecret) < clientSecretMinLen || len(c.ClientSecret) > clientSecretMaxLen {
		return &FieldError{
			Field:  "GITHUB_CLIENT_SECRET",
			Reason: fmt.Sprintf("length %d outside %d-%d", len(c.ClientSecret), clientSecretMinLen, clientSecretMaxLen),
		}
	}

	if err := validateCallbackURL(c.CallbackURL); err != nil {
		return err
	}

	return nil
}

func validateCallbackURL(callback string) error {
	if callback == "" {
		return &FieldError{Field: "GITHUB_CALLBACK_URL", Reason: "cannot be empty"}
	}

	if !strings.HasPrefix(callback, "http://localhost:") && !strings.HasPrefix(callback, "https://") {
		return &FieldError{Field: "GITHUB_CALLBACK_URL", Reason: "must be localhost or HTTPS"}
	}

	u, err := url.Parse(callback)
	if err != nil || u.Host == "" {
		return &FieldError{Field: "GITHUB_CALLBACK_URL", Reason: "not a well-formed URL"}
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

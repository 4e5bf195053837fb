package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"GITHUB_CLIENT_ID",
		"GITHUB_CLIENT_SECRET",
		"GITHUB_CALLBACK_URL",
		"ENVIRONMENT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// setOAuthEnv sets the minimum env vars for a valid config.
func setOAuthEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_CLIENT_ID", "Iv1.abcdef1234567890")
	t.Setenv("GITHUB_CLIENT_SECRET", "0123456789abcdef0123456789abcdef01234567")
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	setOAuthEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultCallbackURL, cfg.CallbackURL)
	assert.Equal(t, AuthorizeURL, cfg.AuthorizeURL)
	assert.Equal(t, TokenURL, cfg.TokenURL)
	assert.Equal(t, []string{"gist"}, cfg.Scopes)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingClientID(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GITHUB_CLIENT_SECRET", "0123456789abcdef0123456789abcdef01234567")

	_, err := Load()
	require.Error(t, err)

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "GITHUB_CLIENT_ID", fieldErr.Field)
}

func TestLoad_MissingClientSecret(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GITHUB_CLIENT_ID", "Iv1.abcdef1234567890")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_CLIENT_SECRET")
}

func TestLoad_Production(t *testing.T) {
	clearConfigEnv(t)
	setOAuthEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

// --- Validate: credential bounds ---

func TestValidate_ClientIDBounds(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		wantErr  bool
	}{
		{"length 7 rejected", strings.Repeat("a", 7), true},
		{"length 8 accepted", strings.Repeat("a", 8), false},
		{"length 64 accepted", strings.Repeat("a", 64), false},
		{"length 65 rejected", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ClientID:     tt.clientID,
				ClientSecret: strings.Repeat("s", 16),
				CallbackURL:  "https://example.com/callback",
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "GITHUB_CLIENT_ID")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ClientSecretBounds(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"length 15 rejected", strings.Repeat("s", 15), true},
		{"length 16 accepted", strings.Repeat("s", 16), false},
		{"length 128 accepted", strings.Repeat("s", 128), false},
		{"length 129 rejected", strings.Repeat("s", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ClientID:     strings.Repeat("a", 20),
				ClientSecret: tt.secret,
				CallbackURL:  "https://example.com/callback",
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "GITHUB_CLIENT_SECRET")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- Validate: callback URL ---

func TestValidate_CallbackURL(t *testing.T) {
	tests := []struct {
		name     string
		callback string
		wantErr  bool
	}{
		{"localhost accepted", "http://localhost:8080/auth/github/callback", false},
		{"https accepted", "https://example.com/callback", false},
		{"ftp rejected", "ftp://example.com/callback", true},
		{"plain http rejected", "http://example.com/callback", true},
		{"empty rejected", "", true},
		{"garbage rejected", "https://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				ClientID:     strings.Repeat("a", 20),
				ClientSecret: strings.Repeat("s", 40),
				CallbackURL:  tt.callback,
			}

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "GITHUB_CALLBACK_URL")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

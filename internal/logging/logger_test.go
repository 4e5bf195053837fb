package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_HandlerSelection(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		wantJSON bool
	}{
		{name: "production uses json", env: "production", wantJSON: true},
		{name: "development uses text", env: "development", wantJSON: false},
		{name: "empty env falls back to text", env: "", wantJSON: false},
		{name: "unknown env falls back to text", env: "staging", wantJSON: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.env)
			require.NotNil(t, logger)

			_, isJSON := logger.Handler().(*slog.JSONHandler)
			assert.Equal(t, tt.wantJSON, isJSON, "handler was %T", logger.Handler())
		})
	}
}

func TestNewLogger_Levels(t *testing.T) {
	// Production stays quiet below Info; development shows Debug so the
	// oauth flow and retry decisions stay visible while testing.
	prod := NewLogger("production")
	assert.True(t, prod.Handler().Enabled(nil, slog.LevelInfo))
	assert.False(t, prod.Handler().Enabled(nil, slog.LevelDebug))

	dev := NewLogger("development")
	assert.True(t, dev.Handler().Enabled(nil, slog.LevelDebug))
}

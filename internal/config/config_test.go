package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaultsAndWarnings(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("EVENT_RELAY_INTERVAL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "INV", cfg.InvoiceNumberPrefix)
	assert.Equal(t, 5*time.Second, cfg.EventRelayInterval)
	assert.Equal(t, 100, cfg.EventRelayBatch)
	assert.Len(t, cfg.Warnings, 2)
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
}

func TestLoadRejectsBadRelayInterval(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("EVENT_RELAY_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
}

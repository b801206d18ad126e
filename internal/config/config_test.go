package config_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/identity/internal/config"
)

func validTicketKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICKET_KEY", validTicketKey())

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "DEV", cfg.Env)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 7*24*time.Hour, cfg.EmailVerifyTTL)
	require.False(t, cfg.S3Enabled())
	require.False(t, cfg.Google.Enabled())

	key, err := cfg.DecodedTicketKey()
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestLoadRequiresTicketKey(t *testing.T) {
	t.Setenv("TICKET_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadRejectsShortTicketKey(t *testing.T) {
	t.Setenv("TICKET_KEY", base64.StdEncoding.EncodeToString([]byte("too-short")))

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoadNestedPrefixes(t *testing.T) {
	t.Setenv("TICKET_KEY", validTicketKey())
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("POSTGRES_DSN", "postgres://db.internal/identity")
	t.Setenv("S3_BUCKET", "profile-images")
	t.Setenv("OIDC_GOOGLE_ISSUER", "https://accounts.google.com")
	t.Setenv("OIDC_GOOGLE_CLIENT_ID", "client-id")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	require.Equal(t, "postgres://db.internal/identity", cfg.Postgres.DSN)
	require.True(t, cfg.S3Enabled())
	require.True(t, cfg.Google.Enabled())
	require.False(t, cfg.Okta.Enabled())
}

func TestOriginAllowed(t *testing.T) {
	t.Setenv("TICKET_KEY", validTicketKey())
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.tasklane.io,https://admin.tasklane.io")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.CORS.OriginAllowed("https://app.tasklane.io"))
	require.True(t, cfg.CORS.OriginAllowed("https://admin.tasklane.io"))
	require.False(t, cfg.CORS.OriginAllowed("https://evil.example.com"))
}

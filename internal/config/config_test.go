package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/masapp-server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, 5, c.GetLoginMaxAttempts())
	require.Equal(t, 15*time.Minute, c.GetLoginWindow())
	require.Equal(t, 30*time.Minute, c.GetQRSessionValidity())
	require.Equal(t, uint(2), c.GetTOTPSkew())
	require.Equal(t, time.Hour, c.GetAccessTokenExpiry())
	require.Equal(t, 7*24*time.Hour, c.GetRefreshTokenExpiry())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOGIN_WINDOW", "1m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.masapp.com, https://b.masapp.com")

	c := config.New()
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, time.Minute, c.GetLoginWindow())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.masapp.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://evil.example"))
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOGIN_MAX_ATTEMPTS", "lots")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "-5m")

	c := config.New()
	require.Equal(t, 5, c.GetLoginMaxAttempts())
	require.Equal(t, time.Hour, c.GetAccessTokenExpiry())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("BASE_DOMAIN: masapp.test\nLOGIN_MAX_ATTEMPTS: 7\n"), 0o600))
	require.NoError(t, config.LoadFile(path))

	c := config.New()
	require.Equal(t, "masapp.test", c.GetBaseDomain())
	require.Equal(t, 7, c.GetLoginMaxAttempts())

	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	require.Equal(t, 3, c.GetLoginMaxAttempts())
}

func TestGeneratedSecretIsStable(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	c := config.New()
	require.True(t, c.IsJWTSecretGenerated())
	require.NotEmpty(t, c.GetJWTSecret())
	require.Equal(t, c.GetJWTSecret(), c.GetJWTSecret())
}

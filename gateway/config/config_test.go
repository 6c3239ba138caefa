package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsRequireSecret(t *testing.T) {
	_, err := Load("")
	require.ErrorIs(t, err, ErrAuthSecretMissing)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
readTimeout: 5s
rateLimits:
  - id: amm
    requestsPerMinute: 120
    burst: 5
auth:
  enabled: true
  hmacSecret: secret
  issuer: pairamm
cors:
  allowedOrigins: ["https://ops.example"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, 5*time.Second, cfg.ReadTimeout)
	require.Equal(t, 30*time.Second, cfg.WriteTimeout)
	require.Equal(t, "scope", cfg.Auth.ScopeClaim)
	require.Equal(t, 2*time.Minute, cfg.Auth.ClockSkew)
	require.Len(t, cfg.RateLimits, 1)
	require.Equal(t, []string{"https://ops.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadAuthEnabledByDefault(t *testing.T) {
	path := writeConfig(t, "listen: \":9090\"\nauth:\n  issuer: pairamm\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrAuthSecretMissing, "omitting auth.enabled keeps auth on")

	path = writeConfig(t, "auth:\n  enabled: false\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Auth.Enabled)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "auth:\n  enabled: false\nbogus: 1\n",
		"duplicate limit": "auth:\n  enabled: false\nrateLimits:\n  - id: amm\n  - id: amm\n",
		"relative path":   "auth:\n  enabled: true\n  hmacSecret: s\n  optionalPaths: [\"v1\"]\n",
		"anonymous":       "auth:\n  enabled: true\n  hmacSecret: s\n  allowAnonymous: true\n",
		"half tls":        "auth:\n  enabled: false\nsecurity:\n  tlsCertFile: cert.pem\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
HTTP_PORT: "9090"
AUTH_MODE: oauth
TRANSPORT_MODE: sse
REGISTRATION_PSK: topsecret
CLIENT_DB_PATH: /var/lib/vaultmcp/clients.db
JWT_KEY_PATH: /var/lib/vaultmcp/signing.pem
SCOPES_SUPPORTED:
  - mcp.read
VAULT_BASE_URL: https://vault.example.com
VAULT_USERNAME: svc-mcp
LOG_LEVEL: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, AuthModeOAuth, cfg.AuthMode)
	assert.Equal(t, TransportSSE, cfg.Transport)
	assert.Equal(t, "topsecret", cfg.RegistrationPSK)
	assert.Equal(t, "/var/lib/vaultmcp/clients.db", cfg.ClientDBPath)
	assert.Equal(t, "/var/lib/vaultmcp/signing.pem", cfg.JWTKeyPath)
	assert.Equal(t, []string{"mcp.read"}, cfg.ScopesSupported)
	assert.Equal(t, "https://vault.example.com", cfg.VaultBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "VAULT_BASE_URL: https://vault.example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, AuthModeNone, cfg.AuthMode)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, "oauth-clients.db", cfg.ClientDBPath)
	assert.Equal(t, []string{"mcp.read", "mcp.write"}, cfg.ScopesSupported)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnvironmentOnly(t *testing.T) {
	t.Setenv("VAULT_BASE_URL", "https://vault.example.com")
	t.Setenv("VAULT_USERNAME", "svc-mcp")
	t.Setenv("VAULT_PASSWORD", "env-secret")
	t.Setenv("REGISTRATION_PSK", "env-psk")
	t.Setenv("EXTERNAL_URL", "https://mcp.example.com")
	t.Setenv("DISABLE_SCOPE_CHECK", "true")
	t.Setenv("ENABLED_TOOLS", "health_check,get_secret")
	t.Setenv("TLS_CERT_FILE", "cert.pem")
	t.Setenv("TLS_KEY_FILE", "key.pem")

	// Nothing but env vars: the file has no relevant keys at all.
	cfg, err := LoadConfig(writeConfig(t, "HTTP_PORT: \"8000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://vault.example.com", cfg.VaultBaseURL)
	assert.Equal(t, "svc-mcp", cfg.VaultUsername)
	assert.Equal(t, "env-secret", cfg.VaultPassword)
	assert.Equal(t, "env-psk", cfg.RegistrationPSK)
	assert.Equal(t, "https://mcp.example.com", cfg.ExternalURL)
	assert.True(t, cfg.DisableScopeCheck)
	assert.Equal(t, []string{"health_check", "get_secret"}, cfg.EnabledTools)
	assert.Equal(t, "cert.pem", cfg.TLSCertFile)
	assert.Equal(t, "key.pem", cfg.TLSKeyFile)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "trace")
	t.Setenv("VAULT_PASSWORD", "env-wins")

	cfg, err := LoadConfig(writeConfig(t, "LOG_LEVEL: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, "env-wins", cfg.VaultPassword)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *ServerConfig {
		return &ServerConfig{AuthMode: AuthModeNone, Transport: TransportStdio}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.AuthMode = "basic"
	assert.ErrorContains(t, cfg.Validate(), "AUTH_MODE")

	cfg = base()
	cfg.Transport = "websocket"
	assert.ErrorContains(t, cfg.Validate(), "TRANSPORT_MODE")

	// Bearer tokens need an HTTP transport to travel over.
	cfg = base()
	cfg.AuthMode = AuthModeOAuth
	assert.ErrorContains(t, cfg.Validate(), "oauth")

	cfg = base()
	cfg.AuthMode = AuthModeOAuth
	cfg.Transport = TransportStreamable
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.TLSCertFile = "cert.pem"
	assert.ErrorContains(t, cfg.Validate(), "TLS")
}

func TestBaseURL(t *testing.T) {
	cfg := &ServerConfig{HTTPPort: "8000"}
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL())

	cfg.TLSCertFile = "cert.pem"
	assert.Equal(t, "https://localhost:8000", cfg.BaseURL())

	cfg.ExternalURL = "https://mcp.example.com/"
	assert.Equal(t, "https://mcp.example.com", cfg.BaseURL())
}

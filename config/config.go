package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Transport and auth mode selectors.
const (
	TransportStdio      = "stdio"
	TransportSSE        = "sse"
	TransportStreamable = "streamable"

	AuthModeNone  = "none"
	AuthModeOAuth = "oauth"
)

// ServerConfig holds all configuration for the server. Tags use
// mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	ExternalURL string `mapstructure:"EXTERNAL_URL"` // audience for issued tokens; defaults to http://localhost:<port>
	AuthMode    string `mapstructure:"AUTH_MODE"`    // none | oauth
	Transport   string `mapstructure:"TRANSPORT_MODE"`

	// Authorization server
	RegistrationPSK   string   `mapstructure:"REGISTRATION_PSK"` // operator approval secret; empty disables registration
	ClientDBPath      string   `mapstructure:"CLIENT_DB_PATH"`
	JWTKeyPath        string   `mapstructure:"JWT_KEY_PATH"` // empty or ":memory:" for an ephemeral keypair
	ScopesSupported   []string `mapstructure:"SCOPES_SUPPORTED"`
	DisableScopeCheck bool     `mapstructure:"DISABLE_SCOPE_CHECK"` // compatibility escape hatch for scope-less clients

	// Vault backend
	VaultBaseURL  string `mapstructure:"VAULT_BASE_URL"`
	VaultUsername string `mapstructure:"VAULT_USERNAME"`
	VaultPassword string `mapstructure:"VAULT_PASSWORD"` // env only, never written to a config file

	EnabledTools  []string `mapstructure:"ENABLED_TOOLS"`  // empty enables every tool
	SearchObjects []string `mapstructure:"SEARCH_OBJECTS"` // object kinds the search tool may touch
	FetchObjects  []string `mapstructure:"FETCH_OBJECTS"`  // object kinds the fetch tool may touch

	// Delinea Platform identity service; platform tools register only
	// when a hostname is set.
	PlatformHostname        string `mapstructure:"PLATFORM_HOSTNAME"`
	PlatformServiceAccount  string `mapstructure:"PLATFORM_SERVICE_ACCOUNT"`
	PlatformServicePassword string `mapstructure:"PLATFORM_SERVICE_PASSWORD"` // env only
	PlatformTenantID        string `mapstructure:"PLATFORM_TENANT_ID"`

	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

// Validate rejects option combinations the server cannot run with.
func (c *ServerConfig) Validate() error {
	switch c.AuthMode {
	case AuthModeNone, AuthModeOAuth:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q", c.AuthMode)
	}
	switch c.Transport {
	case TransportStdio, TransportSSE, TransportStreamable:
	default:
		return fmt.Errorf("invalid TRANSPORT_MODE %q", c.Transport)
	}
	if c.AuthMode == AuthModeOAuth && c.Transport == TransportStdio {
		return fmt.Errorf("AUTH_MODE=oauth requires an HTTP transport (sse or streamable)")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// BaseURL is the externally visible base URL, used as the token audience
// for the protected MCP surface.
func (c *ServerConfig) BaseURL() string {
	if c.ExternalURL != "" {
		return strings.TrimRight(c.ExternalURL, "/")
	}
	scheme := "http"
	if c.TLSCertFile != "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://localhost:%s", scheme, c.HTTPPort)
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. An empty path searches the usual locations.
func LoadConfig(path string) (*ServerConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/vaultmcp/")
		v.AddConfigPath("$HOME/.vaultmcp")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// AutomaticEnv alone does not surface env-only keys to Unmarshal;
	// every key needs an explicit binding.
	for _, key := range []string{
		"HTTP_PORT", "EXTERNAL_URL", "AUTH_MODE", "TRANSPORT_MODE",
		"REGISTRATION_PSK", "CLIENT_DB_PATH", "JWT_KEY_PATH",
		"SCOPES_SUPPORTED", "DISABLE_SCOPE_CHECK",
		"VAULT_BASE_URL", "VAULT_USERNAME", "VAULT_PASSWORD",
		"ENABLED_TOOLS", "SEARCH_OBJECTS", "FETCH_OBJECTS",
		"PLATFORM_HOSTNAME", "PLATFORM_SERVICE_ACCOUNT",
		"PLATFORM_SERVICE_PASSWORD", "PLATFORM_TENANT_ID",
		"TLS_CERT_FILE", "TLS_KEY_FILE", "LOG_LEVEL", "LOG_PRETTY",
	} {
		v.MustBindEnv(key)
	}

	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("AUTH_MODE", AuthModeNone)
	v.SetDefault("TRANSPORT_MODE", TransportStdio)
	v.SetDefault("CLIENT_DB_PATH", "oauth-clients.db")
	v.SetDefault("JWT_KEY_PATH", "")
	v.SetDefault("SCOPES_SUPPORTED", []string{"mcp.read", "mcp.write"})
	v.SetDefault("SEARCH_OBJECTS", []string{"secret"})
	v.SetDefault("FETCH_OBJECTS", []string{"secret"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		// An explicit path or a malformed file is a real error.
		if _, notFound := err.(viper.ConfigFileNotFoundError); path != "" || !notFound {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	echoapi "vaultmcp/api/echo"
	"vaultmcp/config"
	"vaultmcp/mcpbridge"
	"vaultmcp/oauth"
	"vaultmcp/vault"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		setupLogging(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func setupLogging(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
		log.Warn().Str("configured_log_level", cfg.LogLevel).Msg("invalid LOG_LEVEL, defaulting to info")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := vault.NewSession(ctx, vault.Config{
		BaseURL:  cfg.VaultBaseURL,
		Username: cfg.VaultUsername,
		Password: cfg.VaultPassword,
	})
	if err != nil {
		return err
	}

	var platform *vault.Platform
	if cfg.PlatformHostname != "" {
		platform, err = vault.NewPlatform(ctx, vault.PlatformConfig{
			Hostname:        cfg.PlatformHostname,
			ServiceAccount:  cfg.PlatformServiceAccount,
			ServicePassword: cfg.PlatformServicePassword,
			TenantID:        cfg.PlatformTenantID,
		})
		if err != nil {
			return err
		}
	} else {
		log.Info().Msg("platform tools disabled, no platform hostname configured")
	}

	bridge := mcpbridge.NewServer(session, mcpbridge.Config{
		EnabledTools:  cfg.EnabledTools,
		SearchObjects: cfg.SearchObjects,
		FetchObjects:  cfg.FetchObjects,
		Platform:      platform,
	})

	if cfg.Transport == config.TransportStdio {
		return bridge.ServeStdio(ctx)
	}
	return serveHTTP(ctx, cfg, bridge)
}

func serveHTTP(ctx context.Context, cfg *config.ServerConfig, bridge *mcpbridge.Server) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	guard := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	if cfg.AuthMode == config.AuthModeOAuth {
		keyPath := cfg.JWTKeyPath
		if keyPath == "" {
			keyPath = oauth.MemoryKeyLocation
		}
		keys, err := oauth.NewKeyStore(keyPath)
		if err != nil {
			return err
		}
		clients, err := oauth.NewClientRegistry(cfg.ClientDBPath)
		if err != nil {
			return err
		}
		defer clients.Close()
		codes := oauth.NewCodeStore()
		defer codes.Stop()

		api := echoapi.NewOAuth2API(keys, clients, codes, echoapi.Config{
			ApprovalSecret:  cfg.RegistrationPSK,
			ScopesSupported: cfg.ScopesSupported,
		})
		api.RegisterRoutes(e)

		guard = echoapi.RequireScopes(keys, cfg.BaseURL(), cfg.ScopesSupported, cfg.DisableScopeCheck)
		log.Info().Str("audience", cfg.BaseURL()).Msg("oauth mode enabled, MCP transports require a bearer token")
	}

	switch cfg.Transport {
	case config.TransportSSE:
		h := echo.WrapHandler(bridge.SSEHandler(cfg.BaseURL()))
		e.Any(mcpbridge.SSEEndpoint, h, guard)
		e.Any(mcpbridge.MessageEndpoint, h, guard)
	case config.TransportStreamable:
		h := echo.WrapHandler(bridge.StreamableHandler())
		e.Any(mcpbridge.StreamableEndpoint, h, guard)
		e.Any(mcpbridge.StreamableEndpoint+"/*", h, guard)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		log.Info().Str("addr", addr).Str("transport", cfg.Transport).Msg("starting HTTP server")
		if cfg.TLSCertFile != "" {
			errCh <- e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			errCh <- e.Start(addr)
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Package mcpbridge exposes the vault API as MCP tools. The bridge owns
// the MCP server instance and its transports; access control is applied
// by the HTTP layer that mounts the handlers.
package mcpbridge

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"vaultmcp/vault"
)

const (
	serverName    = "vaultmcp"
	serverVersion = "1.0.0"

	// SSEEndpoint and MessageEndpoint are the paths of the SSE transport.
	SSEEndpoint     = "/sse"
	MessageEndpoint = "/message"
	// StreamableEndpoint is the path of the streamable-HTTP transport.
	StreamableEndpoint = "/mcp"
)

// Config selects the tool surface. EnabledTools filters by name, an
// empty list enables everything. SearchObjects and FetchObjects are the
// object kinds the generic search and fetch tools may touch; only
// secrets by default. Platform tools register only when a platform
// client is supplied.
type Config struct {
	EnabledTools  []string
	SearchObjects []string
	FetchObjects  []string
	Platform      *vault.Platform
}

// Server is the MCP tool server bridging agents to the vault.
type Server struct {
	mcp      *server.MCPServer
	vault    *vault.Session
	platform *vault.Platform

	searchKinds map[string]bool
	fetchKinds  map[string]bool
}

// NewServer builds the MCP server and registers the vault tools.
func NewServer(session *vault.Session, cfg Config) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
		vault:       session,
		platform:    cfg.Platform,
		searchKinds: kindSet(cfg.SearchObjects),
		fetchKinds:  kindSet(cfg.FetchObjects),
	}
	s.registerTools(cfg.EnabledTools)
	return s
}

func kindSet(objects []string) map[string]bool {
	if len(objects) == 0 {
		objects = []string{"secret"}
	}
	set := make(map[string]bool, len(objects))
	for _, o := range objects {
		set[strings.ToLower(o)] = true
	}
	return set
}

// MCP exposes the underlying server, primarily for tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the MCP protocol over stdin/stdout until the context
// is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	log.Info().Msg("serving MCP over stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// SSEHandler returns the SSE transport as an http.Handler serving both
// the event stream and message endpoints, for mounting behind the
// scope guard.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	return server.NewSSEServer(
		s.mcp,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint(SSEEndpoint),
		server.WithMessageEndpoint(MessageEndpoint),
	)
}

// StreamableHandler returns the streamable-HTTP transport as an
// http.Handler.
func (s *Server) StreamableHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

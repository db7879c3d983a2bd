package mcp

import (
	"log/slog"

	"github.com/rpggio/ngoboard/internal/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config contains server configuration.
type Config struct {
	Handler         *Handler
	Resolver        auth.Resolver
	AuthEnabled     bool
	TransportMode   string // "stdio" or "http"
	DefaultIdentity auth.Identity
	Version         string
	Logger          *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "ngoboard",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Each call wraps the previous handler, so the identity middleware added
	// last runs first and traffic logging sees the resolved identity.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Stdio mode: always disable auth (local operator only)
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled || cfg.Resolver == nil {
		server.AddReceivingMiddleware(staticIdentityMiddleware(cfg.DefaultIdentity))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}

	registerTools(server, cfg.Handler, cfg.Logger)

	return server
}

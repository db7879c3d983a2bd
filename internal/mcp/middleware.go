package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/ngoboard/internal/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver auth.Resolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", auth.ErrUnauthorized)
			}

			header := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized)
			}

			id, err := resolver.ResolveIdentity(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", auth.ErrUnauthorized, err)
			}

			return next(auth.WithIdentity(ctx, id), method, req)
		}
	}
}

// staticIdentityMiddleware injects a fixed identity when auth is disabled.
func staticIdentityMiddleware(id auth.Identity) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(auth.WithIdentity(ctx, id), method, req)
		}
	}
}

// Package kit holds the transport-agnostic plumbing shared by the CLI and
// MCP surfaces: the Endpoint abstraction, middleware chaining, request
// context accessors, and the MCP tool adapter.
package kit

import "context"

// Endpoint is a transport-agnostic operation: one typed request in, one
// response out. CLI handlers and MCP tools both terminate here.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one listed runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Package kit carries the shared transport plumbing: the Endpoint
// abstraction, middleware chaining, and request-scoped context values.
package kit

import "context"

// Endpoint is a transport-agnostic request handler. HTTP and MCP
// adapters both terminate in an Endpoint.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

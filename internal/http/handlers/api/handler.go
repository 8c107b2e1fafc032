package api

import "github.com/teranga-pos/payments/internal/provider"

// Handler serves the terminal-facing API. Every route behind it runs after
// the tenant JWT middleware, so tenant and cashier identity come from the
// request context.
type Handler struct {
	*provider.Container
}

// New creates the API handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

package mcp

import "context"

// Transport is the framing and delivery contract shared by stdio, SSE, and
// WebSocket peers (spec.md §4.1): open once, send one framed JSON-RPC
// request and get its matching response back, send fire-and-forget
// notifications, and close cleanly. Client assigns request IDs; each
// transport matches an incoming response to its pending request by that ID.
// Neither layer retries a failed request.
type Transport interface {
	// Send sends req and blocks until the response carrying the same ID
	// arrives, the context is cancelled, or the transport fails.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Notify sends a notification frame. No response is expected.
	Notify(ctx context.Context, notif *Notification) error

	// Close releases the transport's underlying resources (subprocess,
	// socket, HTTP connection). Idempotent.
	Close() error
}

// NewTransport builds the Transport named by desc.Transport.
func NewTransport(desc ServerDescriptor, opts ...TransportOption) (Transport, error) {
	cfg := transportConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	switch desc.Transport {
	case TransportStdio:
		return newStdioTransportFromURL(desc, cfg)
	case TransportSSE:
		return newSSETransport(desc, cfg), nil
	case TransportWS:
		return newWSTransport(desc, cfg), nil
	default:
		return nil, ErrInvalidConfig
	}
}

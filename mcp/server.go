// Package mcp implements the Transport and MCP Client components of
// spec.md §4.1–4.2: a framed JSON-RPC channel to an MCP peer over stdio,
// SSE, or WebSocket, and a thin request/response client built on top of it.
package mcp

import (
	"fmt"
	"strings"
)

// TransportKind identifies which wire protocol a ServerDescriptor uses.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportSSE   TransportKind = "sse"
	TransportWS    TransportKind = "ws"
)

// ServerDescriptor is an origin: spec.md §3 — identity is
// url ∥ "::" ∥ transport. Immutable once constructed.
type ServerDescriptor struct {
	URL       string
	Transport TransportKind
	AuthToken string
}

// Key returns the ConnectionKey / catalogue identity for this descriptor.
func (s ServerDescriptor) Key() string {
	return s.URL + "::" + string(s.Transport)
}

func (s ServerDescriptor) String() string {
	return s.Key()
}

// ParseServerSpec parses the "url::type" (optionally "url::type::authToken")
// form used on the CLI (spec.md §6) and by the add-server meta-tool
// (spec.md §4.6).
func ParseServerSpec(spec string) (ServerDescriptor, error) {
	parts := strings.SplitN(spec, "::", 3)
	if len(parts) < 2 {
		return ServerDescriptor{}, fmt.Errorf("%w: expected url::type, got %q", ErrInvalidServerSpec, spec)
	}

	url := parts[0]
	kind := TransportKind(parts[1])
	switch kind {
	case TransportStdio, TransportSSE, TransportWS:
	default:
		return ServerDescriptor{}, fmt.Errorf("%w: unknown transport %q", ErrInvalidServerSpec, parts[1])
	}
	if url == "" {
		return ServerDescriptor{}, fmt.Errorf("%w: empty url in %q", ErrInvalidServerSpec, spec)
	}

	desc := ServerDescriptor{URL: url, Transport: kind}
	if len(parts) == 3 {
		desc.AuthToken = parts[2]
	}
	return desc, nil
}

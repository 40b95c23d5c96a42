package mcp

import "errors"

var (
	// ErrInvalidServerSpec is returned by ParseServerSpec for malformed specs.
	ErrInvalidServerSpec = errors.New("mcp: invalid server spec")

	// ErrInvalidConfig is returned when a Transport is constructed from an
	// incomplete ServerDescriptor (e.g. stdio with no command).
	ErrInvalidConfig = errors.New("mcp: invalid transport config")

	// ErrNotConnected names a call made without a live connection. No
	// function in this package returns it.
	ErrNotConnected = errors.New("mcp: not connected")

	// ErrImageResult is returned when a tool_result content item from the
	// peer carries image data. Images are rejected on ingest (spec.md §4.2)
	// rather than threaded through the Conversation Model.
	ErrImageResult = errors.New("mcp: image content in tool result is not supported")

	// ErrRPC wraps a non-nil JSON-RPC error object returned by the peer.
	ErrRPC = errors.New("mcp: rpc error")
)

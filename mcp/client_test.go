package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	onSend func(req *Request) (*Response, error)
	closed bool
}

func (f *fakeTransport) Send(_ context.Context, req *Request) (*Response, error) {
	return f.onSend(req)
}

func (f *fakeTransport) Notify(_ context.Context, _ *Notification) error {
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestClient_ListTools(t *testing.T) {
	ft := &fakeTransport{
		onSend: func(req *Request) (*Response, error) {
			switch req.Method {
			case "initialize":
				return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
			case "tools/list":
				return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"tools":[{"name":"fetch","description":"fetch a url","inputSchema":{}}]}`)}, nil
			}
			t.Fatalf("unexpected method %s", req.Method)
			return nil, nil
		},
	}

	c := NewClient(ServerDescriptor{URL: "x", Transport: TransportStdio}, ft, nil)
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "fetch", tools[0].Name)
}

func TestClient_CallTool(t *testing.T) {
	ft := &fakeTransport{
		onSend: func(req *Request) (*Response, error) {
			if req.Method == "initialize" {
				return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
			}
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"content":[{"type":"text","text":"ok"}],"isError":false}`)}, nil
		},
	}

	c := NewClient(ServerDescriptor{URL: "x", Transport: TransportStdio}, ft, nil)
	result, err := c.CallTool(context.Background(), "fetch", json.RawMessage(`{"url":"http://x"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.JoinedText())
	assert.False(t, result.IsError)
}

func TestClient_CallTool_RejectsImageContent(t *testing.T) {
	ft := &fakeTransport{
		onSend: func(req *Request) (*Response, error) {
			if req.Method == "initialize" {
				return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
			}
			return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"content":[{"type":"image"}],"isError":false}`)}, nil
		},
	}

	c := NewClient(ServerDescriptor{URL: "x", Transport: TransportStdio}, ft, nil)
	_, err := c.CallTool(context.Background(), "screenshot", nil)
	assert.ErrorIs(t, err, ErrImageResult)
}

func TestClient_CallTool_RPCError(t *testing.T) {
	ft := &fakeTransport{
		onSend: func(req *Request) (*Response, error) {
			if req.Method == "initialize" {
				return &Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
			}
			return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: -32601, Message: "unknown tool"}}, nil
		},
	}

	c := NewClient(ServerDescriptor{URL: "x", Transport: TransportStdio}, ft, nil)
	_, err := c.CallTool(context.Background(), "nonexistent", nil)
	assert.ErrorIs(t, err, ErrRPC)
}

func TestClient_Close_ClosesTransport(t *testing.T) {
	ft := &fakeTransport{onSend: func(req *Request) (*Response, error) { return nil, nil }}
	c := NewClient(ServerDescriptor{URL: "x", Transport: TransportStdio}, ft, nil)
	require.NoError(t, c.Close())
	assert.True(t, ft.closed)
}

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// sseTransport consumes a server-sent-events stream for server-to-client
// messages and POSTs client-to-server messages to the endpoint the peer
// advertises in its first "endpoint" event. There is no SSE client library
// in this stack — the frame format (event:/data: lines, blank-line
// terminated) is simple enough to scan by hand with bufio.Scanner.
type sseTransport struct {
	streamURL string
	token     string
	log       *zap.Logger
	client    *http.Client

	connectOnce sync.Once
	connectErr  error
	streamBody  io.Closer

	postURL string

	pendingMu sync.Mutex
	pending   map[string]chan *Response
}

var _ Transport = (*sseTransport)(nil)

func newSSETransport(desc ServerDescriptor, cfg transportConfig) *sseTransport {
	return &sseTransport{
		streamURL: desc.URL,
		token:     desc.AuthToken,
		log:       cfg.logOrNop(),
		client:    &http.Client{},
		pending:   make(map[string]chan *Response),
	}
}

func (t *sseTransport) connect(ctx context.Context) error {
	t.connectOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.streamURL, nil)
		if err != nil {
			t.connectErr = fmt.Errorf("build sse request: %w", err)
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		if t.token != "" {
			req.Header.Set("Authorization", "Bearer "+t.token)
		}

		t.log.Info("opening MCP SSE stream", zap.String("url", t.streamURL))
		resp, err := t.client.Do(req)
		if err != nil {
			t.connectErr = fmt.Errorf("open sse stream: %w", err)
			return
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.connectErr = fmt.Errorf("sse stream returned status %d", resp.StatusCode)
			return
		}

		t.streamBody = resp.Body

		endpointReady := make(chan struct{})
		go t.readLoop(resp.Body, endpointReady)

		select {
		case <-endpointReady:
		case <-ctx.Done():
			t.connectErr = ctx.Err()
		case <-time.After(10 * time.Second):
			t.connectErr = fmt.Errorf("timed out waiting for sse endpoint event")
		}
	})
	return t.connectErr
}

// readLoop scans "event:"/"data:" line pairs, blank-line terminated. The
// first "endpoint" event supplies the relative path to POST requests to;
// every "message" event thereafter is a JSON-RPC Response dispatched to its
// waiting Send call.
func (t *sseTransport) readLoop(body io.Reader, endpointReady chan struct{}) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var event, data string
	endpointSeen := false

	flush := func() {
		defer func() { event, data = "", "" }()
		if data == "" {
			return
		}
		switch event {
		case "endpoint":
			t.postURL = t.resolveEndpoint(data)
			if !endpointSeen {
				endpointSeen = true
				close(endpointReady)
			}
		case "message", "":
			var resp Response
			if err := json.Unmarshal([]byte(data), &resp); err != nil {
				t.log.Debug("skipping non-JSON sse data", zap.String("data", data))
				return
			}
			t.pendingMu.Lock()
			ch, ok := t.pending[resp.ID]
			t.pendingMu.Unlock()
			if ok {
				ch <- &resp
			}
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	flush()
}

func (t *sseTransport) resolveEndpoint(raw string) string {
	base, err := url.Parse(t.streamURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func (t *sseTransport) postURLOrStream() string {
	if t.postURL != "" {
		return t.postURL
	}
	return t.streamURL
}

func (t *sseTransport) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.postURLOrStream(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sse post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sse message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sse post returned status %d", resp.StatusCode)
	}
	return nil
}

func (t *sseTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := t.connect(ctx); err != nil {
		return nil, err
	}

	ch := make(chan *Response, 1)
	t.pendingMu.Lock()
	t.pending[req.ID] = ch
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, req.ID)
		t.pendingMu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if err := t.post(ctx, data); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("timeout waiting for response to %s", req.ID)
	}
}

func (t *sseTransport) Notify(ctx context.Context, notif *Notification) error {
	if err := t.connect(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return t.post(ctx, data)
}

func (t *sseTransport) Close() error {
	if t.streamBody != nil {
		return t.streamBody.Close()
	}
	return nil
}

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsTransport speaks framed JSON-RPC over a single long-lived WebSocket
// connection, dialed lazily on the first Send/Notify.
type wsTransport struct {
	url   string
	token string
	log   *zap.Logger

	dialOnce sync.Once
	dialErr  error

	connMu sync.Mutex
	conn   *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan *Response
}

var _ Transport = (*wsTransport)(nil)

func newWSTransport(desc ServerDescriptor, cfg transportConfig) *wsTransport {
	return &wsTransport{
		url:     desc.URL,
		token:   desc.AuthToken,
		log:     cfg.logOrNop(),
		pending: make(map[string]chan *Response),
	}
}

func (t *wsTransport) dial(ctx context.Context) error {
	t.dialOnce.Do(func() {
		header := make(map[string][]string)
		if t.token != "" {
			header["Authorization"] = []string{"Bearer " + t.token}
		}

		dialer := websocket.Dialer{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		}

		t.log.Info("dialing MCP websocket server", zap.String("url", t.url))
		conn, _, err := dialer.DialContext(ctx, t.url, header)
		if err != nil {
			t.dialErr = fmt.Errorf("dial websocket: %w", err)
			return
		}

		t.connMu.Lock()
		t.conn = conn
		t.connMu.Unlock()

		go t.readLoop()
	})
	return t.dialErr
}

func (t *wsTransport) readLoop() {
	for {
		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()
		if conn == nil {
			return
		}

		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.log.Warn("MCP websocket read error", zap.Error(err))
			}
			return
		}

		t.pendingMu.Lock()
		ch, ok := t.pending[resp.ID]
		t.pendingMu.Unlock()
		if !ok {
			t.log.Debug("skipping unmatched MCP message", zap.String("id", resp.ID))
			continue
		}
		ch <- &resp
	}
}

func (t *wsTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := t.dial(ctx); err != nil {
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

	t.connMu.Lock()
	err := t.conn.WriteJSON(req)
	t.connMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write websocket request: %w", err)
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

func (t *wsTransport) Notify(ctx context.Context, notif *Notification) error {
	if err := t.dial(ctx); err != nil {
		return err
	}
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if err := t.conn.WriteJSON(notif); err != nil {
		return fmt.Errorf("write websocket notification: %w", err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/armorclaw/raven/pkg/event"
)

// DefaultWriteTimeout bounds a single websocket write
const DefaultWriteTimeout = 10 * time.Second

// WebSocketConfig configures a WebSocketTransport
type WebSocketConfig struct {
	URL          string
	Header       http.Header
	WriteTimeout time.Duration
	Dialer       *websocket.Dialer
}

// WebSocketTransport streams packets as JSON text messages to a live-tail
// endpoint. It dials on first use and drops the connection after a failed
// write; the next Send dials again.
type WebSocketTransport struct {
	url          string
	header       http.Header
	writeTimeout time.Duration
	dialer       *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWebSocketTransport creates a websocket transport
func NewWebSocketTransport(cfg WebSocketConfig) (*WebSocketTransport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket url is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebSocketTransport{
		url:          cfg.URL,
		header:       cfg.Header,
		writeTimeout: cfg.WriteTimeout,
		dialer:       dialer,
	}, nil
}

// Name implements Named
func (t *WebSocketTransport) Name() string {
	return "websocket"
}

// Send writes p as one text message
func (t *WebSocketTransport) Send(ctx context.Context, p *event.Packet) error {
	body, err := p.JSON()
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.conn == nil {
		conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
		if err != nil {
			return fmt.Errorf("dial %s: %w", t.url, err)
		}
		t.conn = conn
	}

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	t.conn.SetWriteDeadline(deadline)

	if err := t.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		t.conn.Close()
		t.conn = nil
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the connection
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.conn == nil {
		return nil
	}
	t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := t.conn.Close()
	t.conn = nil
	return err
}

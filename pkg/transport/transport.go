// Package transport delivers packets to their destinations.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/armorclaw/raven/pkg/event"
)

// Transport delivers packets. Send makes one attempt; callers decide what a
// failure means.
type Transport interface {
	Send(ctx context.Context, p *event.Packet) error
	Close() error
}

// Named is implemented by transports that report a stable name for logs and
// metrics.
type Named interface {
	Name() string
}

var (
	// ErrInvalidDSN is returned for malformed DSNs
	ErrInvalidDSN = errors.New("invalid DSN")

	// ErrClosed is returned by Send after Close
	ErrClosed = errors.New("transport closed")
)

// StatusError is returned when the server rejects a packet.
type StatusError struct {
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("server responded %d", e.StatusCode)
}

// NameOf returns the name of t, or its type when it is not Named.
func NameOf(t Transport) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}

// Func adapts a function to a Transport with a no-op Close.
type Func func(ctx context.Context, p *event.Packet) error

func (f Func) Send(ctx context.Context, p *event.Packet) error {
	return f(ctx, p)
}

func (f Func) Close() error {
	return nil
}

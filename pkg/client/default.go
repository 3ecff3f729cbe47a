package client

import (
	"context"
	"sync/atomic"

	"github.com/armorclaw/raven/pkg/event"
)

var defaultClient atomic.Pointer[Client]

// SetDefault sets the process-wide client used by the package functions
func SetDefault(c *Client) {
	defaultClient.Store(c)
}

// Default returns the process-wide client, or nil when none is set
func Default() *Client {
	return defaultClient.Load()
}

// CaptureError captures err with the default client. It returns "" when no
// default client is set.
func CaptureError(ctx context.Context, err error, opts ...CaptureOption) string {
	c := Default()
	if c == nil {
		return ""
	}
	return c.CaptureError(ctx, err, opts...)
}

// CaptureMessage captures msg with the default client
func CaptureMessage(ctx context.Context, msg string, level event.Level, opts ...CaptureOption) string {
	c := Default()
	if c == nil {
		return ""
	}
	return c.CaptureMessage(ctx, msg, level, opts...)
}

// Recover captures a panic with the default client. It must be deferred
// directly. Without a default client the panic is re-raised.
func Recover(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	c := Default()
	if c == nil {
		panic(r)
	}
	c.CaptureError(ctx, newPanicError(r, 1), WithLevel(event.LevelFatal))
	if c.opts.RepanicOnRecover {
		panic(r)
	}
}

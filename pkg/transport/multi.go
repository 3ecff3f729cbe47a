package transport

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/armorclaw/raven/pkg/event"
)

// ErrorHook is told about every transport that fails inside a Multi.
type ErrorHook func(ctx context.Context, name string, p *event.Packet, err error)

// Multi sends each packet to every transport concurrently.
type Multi struct {
	transports []Transport
	onError    ErrorHook
}

// NewMulti creates a fan-out transport
func NewMulti(transports ...Transport) *Multi {
	return &Multi{transports: transports}
}

// OnError registers a hook for individual failures. The hook may run
// concurrently.
func (m *Multi) OnError(hook ErrorHook) *Multi {
	m.onError = hook
	return m
}

// Name implements Named
func (m *Multi) Name() string {
	return "multi"
}

// Len returns the number of transports
func (m *Multi) Len() int {
	return len(m.transports)
}

// Send delivers p to every transport. One failure does not stop the others;
// all failures are joined into the returned error.
func (m *Multi) Send(ctx context.Context, p *event.Packet) error {
	errs := make([]error, len(m.transports))

	var g errgroup.Group
	for i, t := range m.transports {
		g.Go(func() error {
			if err := safeSend(ctx, t, p); err != nil {
				name := NameOf(t)
				if m.onError != nil {
					m.onError(ctx, name, p, err)
				}
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// safeSend turns a panicking transport into an error; a panic in an errgroup
// goroutine would otherwise take down the process.
func safeSend(ctx context.Context, t Transport, p *event.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return t.Send(ctx, p)
}

// Close closes every transport
func (m *Multi) Close() error {
	var errs []error
	for _, t := range m.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", NameOf(t), err))
		}
	}
	return errors.Join(errs...)
}

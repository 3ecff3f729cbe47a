// Package client captures errors and delivers them as events.
//
// A Client wires the capture pipeline together: frame extraction, request
// snapshotting, sampling, breadcrumbs and fan-out delivery. Capture methods
// never panic and never return errors to the caller; failures are logged
// through logger.Diagnostics and counted in metrics.
package client

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/armorclaw/raven/internal/metrics"
	"github.com/armorclaw/raven/pkg/breadcrumb"
	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/logger"
	"github.com/armorclaw/raven/pkg/request"
	"github.com/armorclaw/raven/pkg/sampling"
	"github.com/armorclaw/raven/pkg/stacktrace"
	"github.com/armorclaw/raven/pkg/store"
	"github.com/armorclaw/raven/pkg/transport"
)

// Drop reasons recorded in metrics and diagnostics
const (
	DropSampled   = "sampled"
	DropTransport = "transport"
	DropPanic     = "panic"
	DropClosed    = "closed"
)

// Client captures errors and messages
type Client struct {
	opts Options

	log         *logger.Logger
	diag        *logger.Diagnostics
	metrics     *metrics.Metrics
	extractor   *stacktrace.Extractor
	snapshotter *request.Snapshotter
	sampler     *sampling.Registry
	breadcrumbs *breadcrumb.Buffer
	transport   *transport.Multi
	store       *store.Store
	janitor     *store.Janitor

	mu     sync.RWMutex
	closed bool
}

// New creates a client. Transports are built from the options; when none is
// configured, events are written through the logger.
func New(opts Options) (*Client, error) {
	opts.setDefaults()

	c := &Client{
		opts:        opts,
		log:         opts.Logger.WithComponent("client"),
		diag:        logger.NewDiagnostics(opts.Logger),
		metrics:     opts.Metrics,
		breadcrumbs: breadcrumb.NewBuffer(opts.BreadcrumbSize),
	}
	if opts.ServerName == "" {
		c.opts.ServerName, _ = os.Hostname()
	}

	extractorOpts := []stacktrace.Option{
		stacktrace.WithDiagnostics(c.diag),
		stacktrace.WithObserver(func(s stacktrace.Strategy) {
			c.metrics.RecordExtraction(string(s))
		}),
	}
	for _, tracer := range opts.StackTracers {
		extractorOpts = append(extractorOpts, stacktrace.WithStackTracer(tracer))
	}
	if opts.DisableNative {
		extractorOpts = append(extractorOpts, stacktrace.WithoutNative())
	}
	c.extractor = stacktrace.NewExtractor(extractorOpts...)
	c.snapshotter = request.NewSnapshotter(c.diag, opts.Registry)

	if !opts.DisableSampling {
		c.sampler = sampling.NewRegistry(sampling.Config{
			Window:    opts.SampleWindow,
			Retention: opts.SampleRetention,
		})
	}

	transports, err := c.buildTransports()
	if err != nil {
		for _, t := range transports {
			t.Close()
		}
		return nil, err
	}
	c.transport = transport.NewMulti(transports...).OnError(c.transportFailed)

	if c.store != nil && opts.JanitorSchedule != "" {
		c.janitor, err = c.store.StartJanitor(opts.JanitorSchedule, opts.Logger)
		if err != nil {
			c.transport.Close()
			return nil, err
		}
	}

	c.log.Debug("client initialized",
		"transports", c.transport.Len(),
		"native_frames", c.extractor.NativeAvailable(),
		"sampling", c.sampler != nil,
	)
	return c, nil
}

func (c *Client) buildTransports() ([]transport.Transport, error) {
	var transports []transport.Transport

	if c.opts.DSN != "" {
		t, err := transport.NewHTTPTransport(transport.HTTPConfig{
			DSN:       c.opts.DSN,
			Timeout:   c.opts.SendTimeout,
			RateLimit: c.opts.RateLimit,
			RateBurst: c.opts.RateBurst,
		})
		if err != nil {
			return transports, fmt.Errorf("failed to create http transport: %w", err)
		}
		transports = append(transports, t)
	}

	if c.opts.WebSocketURL != "" {
		t, err := transport.NewWebSocketTransport(transport.WebSocketConfig{
			URL:          c.opts.WebSocketURL,
			WriteTimeout: c.opts.SendTimeout,
		})
		if err != nil {
			return transports, fmt.Errorf("failed to create websocket transport: %w", err)
		}
		transports = append(transports, t)
	}

	if c.opts.StorePath != "" {
		s, err := store.Open(store.Config{
			Path:          c.opts.StorePath,
			RetentionDays: c.opts.RetentionDays,
		})
		if err != nil {
			return transports, fmt.Errorf("failed to open event store: %w", err)
		}
		c.store = s
		transports = append(transports, s)
	}

	transports = append(transports, c.opts.Transports...)

	if c.opts.LogEvents || len(transports) == 0 {
		transports = append(transports, transport.NewLogTransport(c.opts.Logger))
	}
	return transports, nil
}

func (c *Client) transportFailed(ctx context.Context, name string, p *event.Packet, err error) {
	c.metrics.RecordTransportFailure(name)
	c.diag.Transport(ctx, name, p.EventID, err)
}

// CaptureError captures err and returns the event id. It returns "" when err
// is nil or the event was dropped.
func (c *Client) CaptureError(ctx context.Context, err error, opts ...CaptureOption) string {
	if err == nil {
		return ""
	}
	return c.capture(ctx, func(b *event.Builder) {
		b.WithError(c.extractor, err)
	}, opts)
}

// CaptureMessage captures a message with the stack of the caller
func (c *Client) CaptureMessage(ctx context.Context, msg string, level event.Level, opts ...CaptureOption) string {
	st := stacktrace.Capture(1)
	return c.capture(ctx, func(b *event.Builder) {
		b.WithMessage(msg).WithLevel(level).WithStacktrace(st)
	}, opts)
}

func (c *Client) capture(ctx context.Context, fill func(*event.Builder), opts []CaptureOption) (eventID string) {
	defer func() {
		if r := recover(); r != nil {
			c.diag.Panicked("capture", r)
			c.metrics.RecordDropped(DropPanic)
			eventID = ""
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		c.metrics.RecordDropped(DropClosed)
		c.diag.Dropped(ctx, "", DropClosed)
		return ""
	}

	p := c.build(ctx, fill, opts)

	if c.sampler != nil && !c.sampler.ShouldSend(p) {
		c.metrics.RecordDropped(DropSampled)
		c.diag.Dropped(ctx, p.EventID, DropSampled)
		return ""
	}

	c.metrics.RecordCaptured(string(p.Level))
	if err := c.deliver(ctx, p); err != nil {
		c.metrics.RecordDropped(DropTransport)
	}
	return p.EventID
}

func (c *Client) build(ctx context.Context, fill func(*event.Builder), opts []CaptureOption) *event.Packet {
	provider := c.snapshotter.Resolve(ctx)

	b := event.NewBuilder().
		WithLogger(c.opts.LoggerName).
		WithRelease(c.opts.Release).
		WithEnvironment(c.opts.Environment).
		WithServerName(c.opts.ServerName).
		WithTags(c.opts.Tags).
		WithRequest(c.snapshotter.Capture(provider)).
		WithUser(c.snapshotter.GetUser(provider)).
		WithBreadcrumbs(c.breadcrumbs.All())

	fill(b)
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}

// deliver sends p to every transport, detached from the caller's
// cancellation but bounded by SendTimeout.
func (c *Client) deliver(ctx context.Context, p *event.Packet) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.SendTimeout)
	defer cancel()

	start := time.Now()
	err := c.transport.Send(ctx, p)
	c.metrics.RecordDelivery(time.Since(start), err)
	return err
}

// AddBreadcrumb records a breadcrumb attached to subsequent events
func (c *Client) AddBreadcrumb(category, message string, data map[string]any) {
	c.breadcrumbs.Record(category, message, data)
	c.metrics.SetBreadcrumbs(c.breadcrumbs.Count())
}

// Breadcrumbs returns the breadcrumb buffer
func (c *Client) Breadcrumbs() *breadcrumb.Buffer {
	return c.breadcrumbs
}

// Metrics returns the client's metrics
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Store returns the event store, or nil when none is configured
func (c *Client) Store() *store.Store {
	return c.store
}

// Sampler returns the sampling registry, or nil when sampling is disabled
func (c *Client) Sampler() *sampling.Registry {
	return c.sampler
}

// Extractor returns the frame extractor
func (c *Client) Extractor() *stacktrace.Extractor {
	return c.extractor
}

// Close stops the janitor and closes every transport. Later captures are
// dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.janitor != nil {
		c.janitor.Stop()
	}
	return c.transport.Close()
}

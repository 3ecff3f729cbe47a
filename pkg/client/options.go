package client

import (
	"time"

	"github.com/armorclaw/raven/internal/metrics"
	"github.com/armorclaw/raven/pkg/breadcrumb"
	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/logger"
	"github.com/armorclaw/raven/pkg/request"
	"github.com/armorclaw/raven/pkg/sampling"
	"github.com/armorclaw/raven/pkg/stacktrace"
	"github.com/armorclaw/raven/pkg/transport"
)

// DefaultSendTimeout bounds delivery of one event to all transports.
const DefaultSendTimeout = 5 * time.Second

// Options configures a Client
type Options struct {
	// Delivery
	DSN             string  // Sentry-style DSN for the HTTP transport; empty disables it
	RateLimit       float64 // HTTP packets per second
	RateBurst       int
	WebSocketURL    string // live-tail endpoint; empty disables it
	StorePath       string // SQLite event store; empty disables it
	RetentionDays   int
	JanitorSchedule string // cron spec for store cleanup; empty disables it
	LogEvents       bool   // also write each event through the logger
	Transports      []transport.Transport
	SendTimeout     time.Duration

	// Event defaults
	Environment string
	Release     string
	ServerName  string
	LoggerName  string
	Tags        map[string]string

	// Sampling
	SampleWindow    time.Duration // repeats inside the window are dropped; 0 uses the default
	SampleRetention time.Duration
	DisableSampling bool

	BreadcrumbSize   int
	RepanicOnRecover bool

	// Frame extraction
	StackTracers  []stacktrace.StackTracer
	DisableNative bool

	// Collaborators; nil values get defaults
	Logger   *logger.Logger
	Registry *request.Registry
	Metrics  *metrics.Metrics
}

func (o *Options) setDefaults() {
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.BreadcrumbSize <= 0 {
		o.BreadcrumbSize = breadcrumb.DefaultSize
	}
	if o.SampleWindow <= 0 {
		o.SampleWindow = sampling.DefaultConfig().Window
	}
	if o.SampleRetention <= 0 {
		o.SampleRetention = sampling.DefaultConfig().Retention
	}
	if o.Logger == nil {
		o.Logger = logger.Global()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
}

// CaptureOption adjusts a single event before it is built
type CaptureOption func(*event.Builder)

// WithLevel overrides the event level
func WithLevel(level event.Level) CaptureOption {
	return func(b *event.Builder) { b.WithLevel(level) }
}

// WithMessage overrides the event message
func WithMessage(msg string) CaptureOption {
	return func(b *event.Builder) { b.WithMessage(msg) }
}

// WithTag adds a tag
func WithTag(key, value string) CaptureOption {
	return func(b *event.Builder) { b.WithTag(key, value) }
}

// WithExtra adds extra data
func WithExtra(key string, value any) CaptureOption {
	return func(b *event.Builder) { b.WithExtra(key, value) }
}

// WithCulprit overrides the derived culprit
func WithCulprit(culprit string) CaptureOption {
	return func(b *event.Builder) { b.WithCulprit(culprit) }
}

// WithUser overrides the user read from the request provider
func WithUser(user *request.User) CaptureOption {
	return func(b *event.Builder) { b.WithUser(user) }
}

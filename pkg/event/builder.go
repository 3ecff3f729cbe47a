package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/armorclaw/raven/pkg/breadcrumb"
	"github.com/armorclaw/raven/pkg/request"
	"github.com/armorclaw/raven/pkg/stacktrace"
)

// Builder constructs packets with a fluent API
type Builder struct {
	packet *Packet
}

// NewEventID returns a random event id: a UUIDv4 in hex without dashes.
func NewEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewBuilder creates a builder for an error-level packet stamped now
func NewBuilder() *Builder {
	return &Builder{
		packet: &Packet{
			EventID:   NewEventID(),
			Timestamp: time.Now().UTC(),
			Level:     LevelError,
			Platform:  Platform,
			Tags:      make(map[string]string),
			Extra:     make(map[string]any),
		},
	}
}

// WithError sets the exception chain of err. The message defaults to the
// error text.
func (b *Builder) WithError(ex *stacktrace.Extractor, err error) *Builder {
	b.packet.Exceptions = Exceptions(ex, err)
	if b.packet.Message == "" && err != nil {
		b.packet.Message = err.Error()
	}
	return b
}

// WithMessage sets the message
func (b *Builder) WithMessage(msg string) *Builder {
	b.packet.Message = msg
	return b
}

// WithMessagef sets a formatted message
func (b *Builder) WithMessagef(format string, args ...any) *Builder {
	b.packet.Message = fmt.Sprintf(format, args...)
	return b
}

// WithLevel overrides the level
func (b *Builder) WithLevel(level Level) *Builder {
	b.packet.Level = level
	return b
}

// WithLogger sets the logger name
func (b *Builder) WithLogger(name string) *Builder {
	b.packet.Logger = name
	return b
}

// WithCulprit overrides the culprit derived from the frames
func (b *Builder) WithCulprit(culprit string) *Builder {
	b.packet.Culprit = culprit
	return b
}

// WithStacktrace sets the stacktrace of a packet without exceptions
func (b *Builder) WithStacktrace(st *stacktrace.Stacktrace) *Builder {
	b.packet.Stacktrace = st
	return b
}

// WithRelease sets the release
func (b *Builder) WithRelease(release string) *Builder {
	b.packet.Release = release
	return b
}

// WithEnvironment sets the environment
func (b *Builder) WithEnvironment(env string) *Builder {
	b.packet.Environment = env
	return b
}

// WithServerName sets the server name
func (b *Builder) WithServerName(name string) *Builder {
	b.packet.ServerName = name
	return b
}

// WithTag adds a single tag
func (b *Builder) WithTag(key, value string) *Builder {
	b.packet.Tags[key] = value
	return b
}

// WithTags adds tags
func (b *Builder) WithTags(tags map[string]string) *Builder {
	for k, v := range tags {
		b.packet.Tags[k] = v
	}
	return b
}

// WithExtra adds a single extra value
func (b *Builder) WithExtra(key string, value any) *Builder {
	b.packet.Extra[key] = value
	return b
}

// WithRequest attaches the request snapshot
func (b *Builder) WithRequest(snap *request.Snapshot) *Builder {
	b.packet.Request = snap
	return b
}

// WithUser attaches the user. Empty users are dropped.
func (b *Builder) WithUser(user *request.User) *Builder {
	if user.IsEmpty() {
		user = nil
	}
	b.packet.User = user
	return b
}

// WithBreadcrumbs attaches breadcrumbs
func (b *Builder) WithBreadcrumbs(crumbs []breadcrumb.Breadcrumb) *Builder {
	b.packet.Breadcrumbs = crumbs
	return b
}

// WithTimestamp overrides the timestamp
func (b *Builder) WithTimestamp(ts time.Time) *Builder {
	b.packet.Timestamp = ts.UTC()
	return b
}

// Build creates the final packet
func (b *Builder) Build() *Packet {
	p := b.packet
	if p.Culprit == "" {
		p.Culprit = culprit(p.Exceptions, p.Stacktrace)
	}

	// Clean up empty maps to reduce JSON size
	if len(p.Tags) == 0 {
		p.Tags = nil
	}
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	if len(p.Breadcrumbs) == 0 {
		p.Breadcrumbs = nil
	}
	return p
}

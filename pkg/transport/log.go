package transport

import (
	"context"
	"log/slog"

	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/logger"
)

// LogTransport writes a line per packet through the logger.
type LogTransport struct {
	log *logger.Logger
}

// NewLogTransport creates a log transport. A nil logger uses the global one.
func NewLogTransport(log *logger.Logger) *LogTransport {
	if log == nil {
		log = logger.Global()
	}
	return &LogTransport{log: log.WithComponent("transport")}
}

// Name implements Named
func (t *LogTransport) Name() string {
	return "log"
}

// Send logs p at a level matching the packet level
func (t *LogTransport) Send(ctx context.Context, p *event.Packet) error {
	attrs := []slog.Attr{
		slog.String("event_id", p.EventID),
		slog.String("event_level", string(p.Level)),
		slog.String("fingerprint", p.Fingerprint()),
	}
	if p.Culprit != "" {
		attrs = append(attrs, slog.String("culprit", p.Culprit))
	}
	if root := p.RootCause(); root != nil {
		attrs = append(attrs, slog.String("exception_type", root.Type))
	}
	if n := p.RepeatCount(); n > 0 {
		attrs = append(attrs, slog.Int("repeat_count", n))
	}
	if p.Request != nil && p.Request.URL != "" {
		attrs = append(attrs, slog.String("url", p.Request.URL))
	}

	t.log.LogAttrs(ctx, slogLevel(p.Level), p.Message, attrs...)
	return nil
}

// Close is a no-op
func (t *LogTransport) Close() error {
	return nil
}

func slogLevel(l event.Level) slog.Level {
	switch l {
	case event.LevelDebug:
		return slog.LevelDebug
	case event.LevelInfo:
		return slog.LevelInfo
	case event.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// DiagnosticType names a failure on the capture path.
type DiagnosticType string

const (
	ExtractionFailed DiagnosticType = "extraction_failed"
	NormalizeFailed  DiagnosticType = "normalize_failed"
	FieldFailed      DiagnosticType = "field_failed"
	TransportFailed  DiagnosticType = "transport_failed"
	CaptureDropped   DiagnosticType = "capture_dropped"
	CapturePanicked  DiagnosticType = "capture_panicked"
)

// Diagnostics logs failures that the capture path swallows. Nothing on the
// capture path may propagate an error to the host, so this is the only trace
// such failures leave.
type Diagnostics struct {
	logger *Logger
}

// NewDiagnostics creates diagnostics on top of base. A nil base uses Global().
func NewDiagnostics(base *Logger) *Diagnostics {
	if base == nil {
		base = Global()
	}
	return &Diagnostics{logger: base.WithComponent("capture")}
}

// Logger returns the underlying logger.
func (d *Diagnostics) Logger() *Logger {
	return d.logger
}

func (d *Diagnostics) emit(ctx context.Context, level slog.Level, kind DiagnosticType, attrs ...slog.Attr) {
	if d == nil || d.logger == nil {
		return
	}
	base := []slog.Attr{
		slog.String("diagnostic", string(kind)),
		slog.String("category", "capture"),
	}
	d.logger.LogAttrs(ctx, level, "capture diagnostic", append(base, attrs...)...)
}

// Extraction records a failed frame extraction strategy.
func (d *Diagnostics) Extraction(strategy string, err error) {
	d.emit(context.Background(), slog.LevelWarn, ExtractionFailed,
		slog.String("strategy", strategy),
		errAttr(err),
	)
}

// Normalize records a collection that could not be enumerated.
func (d *Diagnostics) Normalize(collection string, err error) {
	d.emit(context.Background(), slog.LevelWarn, NormalizeFailed,
		slog.String("collection", collection),
		errAttr(err),
	)
}

// Field records a single request field that could not be read.
func (d *Diagnostics) Field(field string, err error) {
	d.emit(context.Background(), slog.LevelWarn, FieldFailed,
		slog.String("field", field),
		errAttr(err),
	)
}

// Transport records a delivery failure.
func (d *Diagnostics) Transport(ctx context.Context, transport, eventID string, err error) {
	d.emit(ctx, slog.LevelError, TransportFailed,
		slog.String("transport", transport),
		slog.String("event_id", eventID),
		errAttr(err),
	)
}

// Dropped records an event that was not sent.
func (d *Diagnostics) Dropped(ctx context.Context, eventID, reason string) {
	d.emit(ctx, slog.LevelDebug, CaptureDropped,
		slog.String("event_id", eventID),
		slog.String("reason", reason),
	)
}

// Panicked records a panic recovered inside capture code itself.
func (d *Diagnostics) Panicked(stage string, recovered any) {
	d.emit(context.Background(), slog.LevelError, CapturePanicked,
		slog.String("stage", stage),
		slog.String("panic", fmt.Sprint(recovered)),
	)
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

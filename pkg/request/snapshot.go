package request

import (
	"context"
	"fmt"

	"github.com/armorclaw/raven/pkg/logger"
)

// Snapshot is the request state at the moment of capture. Every field is
// omitted from JSON when empty.
type Snapshot struct {
	URL         string            `json:"url,omitempty"`
	Method      string            `json:"method,omitempty"`
	QueryString string            `json:"query_string,omitempty"`
	Environment map[string]string `json:"env,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Cookies     map[string]string `json:"cookies,omitempty"`
	Data        any               `json:"data,omitempty"`
}

// Snapshotter builds snapshots and users from providers, logging every
// failure it swallows.
type Snapshotter struct {
	diag     *logger.Diagnostics
	registry *Registry
}

// NewSnapshotter creates a snapshotter. A nil diag logs through the global
// logger; a nil registry falls back to the default registry.
func NewSnapshotter(diag *logger.Diagnostics, registry *Registry) *Snapshotter {
	return &Snapshotter{diag: diag, registry: registry}
}

var defaultSnapshotter = &Snapshotter{}

func (s *Snapshotter) diagnostics() *logger.Diagnostics {
	if s.diag == nil {
		return logger.NewDiagnostics(nil)
	}
	return s.diag
}

// Capture snapshots p using the default snapshotter.
func Capture(p Provider) *Snapshot {
	return defaultSnapshotter.Capture(p)
}

// CaptureContext snapshots the provider carried by ctx, or the default
// provider when ctx carries none.
func CaptureContext(ctx context.Context) *Snapshot {
	return defaultSnapshotter.CaptureContext(ctx)
}

// Resolve returns the provider in scope for ctx: the one carried by ctx,
// otherwise the registry's.
func (s *Snapshotter) Resolve(ctx context.Context) Provider {
	if p, ok := FromContext(ctx); ok {
		return p
	}
	if s.registry != nil {
		return s.registry.Provider()
	}
	return Default()
}

// CaptureContext snapshots the provider in scope for ctx.
func (s *Snapshotter) CaptureContext(ctx context.Context) *Snapshot {
	return s.Capture(s.Resolve(ctx))
}

// Capture snapshots p. It returns nil when p is nil.
func (s *Snapshotter) Capture(p Provider) *Snapshot {
	if isNil(p) {
		return nil
	}

	snap := &Snapshot{
		URL:         s.readString("url", p.URL),
		Method:      s.readString("method", p.Method),
		QueryString: s.readString("query_string", p.QueryString),
		Environment: s.Normalize("env", s.readCollection("env", p.ServerVariables)),
		Headers:     s.Normalize("headers", s.readCollection("headers", p.Headers)),
		Cookies:     s.Normalize("cookies", s.readCollection("cookies", p.Cookies)),
	}

	form := s.Normalize("data", s.readCollection("data", p.FormFields))
	switch {
	case len(form) > 0:
		snap.Data = form
	default:
		if bp, ok := p.(BodyProvider); ok {
			if body := s.readString("data", bp.Body); body != "" {
				snap.Data = body
			}
		}
	}
	return snap
}

func (s *Snapshotter) readString(field string, read func() string) (value string) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnostics().Field(field, fmt.Errorf("panic: %v", r))
			value = ""
		}
	}()
	return read()
}

func (s *Snapshotter) readCollection(name string, read func() Collection) (c Collection) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnostics().Normalize(name, fmt.Errorf("panic: %v", r))
			c = nil
		}
	}()
	return read()
}

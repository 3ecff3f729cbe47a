package stacktrace

import (
	"errors"
	"fmt"

	"github.com/armorclaw/raven/pkg/logger"
)

// Strategy names the extraction path that produced a frame sequence.
type Strategy string

const (
	StrategyNative Strategy = "native"
	StrategyText   Strategy = "text"
	StrategyNone   Strategy = "none"
)

// Observer is notified once per extraction with the strategy that succeeded.
type Observer func(Strategy)

// Extractor converts errors into frame sequences. The native strategy is
// selected once, by a capability probe in NewExtractor; Extract never probes.
type Extractor struct {
	walker   FrameWalker
	parser   *TextParser
	diag     *logger.Diagnostics
	observer Observer
}

// Option configures an Extractor.
type Option func(*extractorOptions)

type extractorOptions struct {
	tracers       []StackTracer
	walker        FrameWalker
	disableNative bool
	diag          *logger.Diagnostics
	observer      Observer
}

// WithStackTracer prepends a custom tracer to the native walker chain.
func WithStackTracer(t StackTracer) Option {
	return func(o *extractorOptions) {
		o.tracers = append(o.tracers, t)
	}
}

// WithWalker replaces the native walker entirely.
func WithWalker(w FrameWalker) Option {
	return func(o *extractorOptions) {
		o.walker = w
	}
}

// WithoutNative forces the text strategy.
func WithoutNative() Option {
	return func(o *extractorOptions) {
		o.disableNative = true
	}
}

// WithDiagnostics sets where swallowed failures are logged.
func WithDiagnostics(d *logger.Diagnostics) Option {
	return func(o *extractorOptions) {
		o.diag = d
	}
}

// WithObserver registers a callback for the strategy used by each extraction.
func WithObserver(fn Observer) Option {
	return func(o *extractorOptions) {
		o.observer = fn
	}
}

// NewExtractor creates an extractor. The native walker is enabled only when
// the runtime resolves frames on this platform.
func NewExtractor(opts ...Option) *Extractor {
	var o extractorOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Extractor{
		parser:   NewTextParser(),
		diag:     o.diag,
		observer: o.observer,
	}
	if e.diag == nil {
		e.diag = logger.NewDiagnostics(nil)
	}

	switch {
	case o.disableNative:
	case o.walker != nil:
		e.walker = o.walker
	case probeNative():
		e.walker = NewNativeWalker(o.tracers...)
	default:
		e.diag.Extraction(string(StrategyNative), errors.New("runtime frame resolution unavailable"))
	}
	return e
}

// NativeAvailable reports whether the native strategy is in use.
func (e *Extractor) NativeAvailable() bool {
	return e.walker != nil
}

// Extract returns the frames of err, innermost call first as the runtime
// reports them. A nil error yields nil. When neither strategy produces frames
// the result is an empty, non-nil slice; failures are logged, never returned.
func (e *Extractor) Extract(err error) []Frame {
	if err == nil {
		return nil
	}

	if e.walker != nil {
		frames, ok, walkErr := e.walk(err)
		if walkErr != nil {
			e.diag.Extraction(string(StrategyNative), walkErr)
		}
		if ok {
			e.observe(StrategyNative)
			return frames
		}
	}

	frames, parseErr := e.parse(err)
	if parseErr != nil {
		e.diag.Extraction(string(StrategyText), parseErr)
		e.observe(StrategyNone)
		return []Frame{}
	}
	if len(frames) == 0 {
		e.observe(StrategyNone)
		return frames
	}
	e.observe(StrategyText)
	return frames
}

func (e *Extractor) walk(err error) (frames []Frame, ok bool, walkErr error) {
	defer func() {
		if r := recover(); r != nil {
			frames, ok, walkErr = nil, false, &walkError{recovered: r}
		}
	}()
	frames, ok = e.walker.Walk(err)
	return frames, ok, nil
}

func (e *Extractor) parse(err error) (frames []Frame, parseErr error) {
	defer func() {
		if r := recover(); r != nil {
			frames, parseErr = nil, fmt.Errorf("trace parser panicked: %v", r)
		}
	}()
	return e.parser.Parse(traceText(err)), nil
}

// traceText returns the textual trace an error exposes.
func traceText(err error) string {
	if t, ok := err.(TraceTexter); ok {
		return t.StackTraceText()
	}
	return fmt.Sprintf("%+v", err)
}

func (e *Extractor) observe(s Strategy) {
	if e.observer != nil {
		e.observer(s)
	}
}

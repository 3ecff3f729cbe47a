package stacktrace

import (
	"fmt"
	"runtime"

	pkgerrors "github.com/pkg/errors"
)

// StackTracer recovers the runtime frames an error carries. It returns false
// when it does not recognize the error.
type StackTracer func(err error) ([]runtime.Frame, bool)

// FrameWalker is the native extraction strategy.
type FrameWalker interface {
	Walk(err error) ([]Frame, bool)
}

type framesCarrier interface {
	StackFrames() []runtime.Frame
}

type pkgErrorsCarrier interface {
	StackTrace() pkgerrors.StackTrace
}

type callersCarrier interface {
	Callers() []uintptr
}

// DefaultStackTracer recognizes errors exposing StackFrames() []runtime.Frame,
// github.com/pkg/errors StackTrace(), or Callers() []uintptr. Only err itself
// is inspected, not its unwrap chain.
func DefaultStackTracer(err error) ([]runtime.Frame, bool) {
	switch e := err.(type) {
	case framesCarrier:
		return e.StackFrames(), true
	case pkgErrorsCarrier:
		st := e.StackTrace()
		pcs := make([]uintptr, len(st))
		for i, f := range st {
			pcs[i] = uintptr(f)
		}
		return resolveCallers(pcs), true
	case callersCarrier:
		return resolveCallers(e.Callers()), true
	}
	return nil, false
}

func resolveCallers(pcs []uintptr) []runtime.Frame {
	if len(pcs) == 0 {
		return []runtime.Frame{}
	}
	frames := runtime.CallersFrames(pcs)
	out := make([]runtime.Frame, 0, len(pcs))
	for {
		fr, more := frames.Next()
		out = append(out, fr)
		if !more {
			break
		}
	}
	return out
}

// NativeWalker runs a chain of stack tracers and normalizes the first match.
type NativeWalker struct {
	tracers []StackTracer
	modules *moduleIndex
}

// NewNativeWalker creates a walker that tries the given tracers in order and
// then DefaultStackTracer.
func NewNativeWalker(tracers ...StackTracer) *NativeWalker {
	chain := make([]StackTracer, 0, len(tracers)+1)
	chain = append(chain, tracers...)
	chain = append(chain, DefaultStackTracer)
	return &NativeWalker{
		tracers: chain,
		modules: loadModuleIndex(),
	}
}

// Walk implements FrameWalker. Tracer panics are not recovered here; the
// Extractor treats them as a failed strategy.
func (w *NativeWalker) Walk(err error) ([]Frame, bool) {
	for _, tracer := range w.tracers {
		raw, ok := tracer(err)
		if !ok {
			continue
		}
		frames := make([]Frame, 0, len(raw))
		for _, fr := range raw {
			frames = append(frames, w.convert(fr))
		}
		return frames, true
	}
	return nil, false
}

func (w *NativeWalker) convert(fr runtime.Frame) Frame {
	symbol := fr.Function
	if symbol == "" && fr.Func != nil {
		symbol = fr.Func.Name()
	}
	qn := splitFunctionName(symbol)

	return Frame{
		Function:   formatFunction(qn),
		Filename:   fr.File,
		Module:     qn.pkg,
		Source:     w.modules.source(qn.pkg),
		LineNumber: fr.Line,
	}
}

// probeNative reports whether runtime.Callers resolves frames on this platform.
func probeNative() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	pcs := make([]uintptr, 4)
	n := runtime.Callers(1, pcs)
	if n == 0 {
		return false
	}
	fr, _ := runtime.CallersFrames(pcs[:n]).Next()
	return fr.Function != ""
}

// walkError wraps a recovered walker panic.
type walkError struct {
	recovered any
}

func (e *walkError) Error() string {
	return fmt.Sprintf("frame walker panicked: %v", e.recovered)
}

package client

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/armorclaw/raven/pkg/breadcrumb"
	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/request"
)

const maxPanicDepth = 64

// PanicError is a recovered panic. It carries the program counters of the
// panicking goroutine for native frame extraction and the debug.Stack text
// for the text fallback.
type PanicError struct {
	Value any

	callers []uintptr
	stack   []byte
}

func newPanicError(value any, skip int) *PanicError {
	pcs := make([]uintptr, maxPanicDepth)
	n := runtime.Callers(skip+2, pcs)
	return &PanicError{
		Value:   value,
		callers: afterGopanic(pcs[:n]),
		stack:   debug.Stack(),
	}
}

// afterGopanic drops the deferred call chain up to runtime.gopanic so the
// first frame is the panic site.
func afterGopanic(pcs []uintptr) []uintptr {
	for i, pc := range pcs {
		if fn := runtime.FuncForPC(pc - 1); fn != nil && fn.Name() == "runtime.gopanic" {
			return pcs[i+1:]
		}
	}
	return pcs
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Callers returns the program counters recorded at recovery
func (e *PanicError) Callers() []uintptr {
	return e.callers
}

// StackTraceText returns the goroutine dump recorded at recovery
func (e *PanicError) StackTraceText() string {
	return string(e.stack)
}

// Recover captures a panic at fatal level. It must be deferred directly:
//
//	defer c.Recover(ctx)
//
// The panic is swallowed unless RepanicOnRecover is set.
func (c *Client) Recover(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	c.CaptureError(ctx, newPanicError(r, 1), WithLevel(event.LevelFatal))
	if c.opts.RepanicOnRecover {
		panic(r)
	}
}

// Middleware puts the request into the context of next so events captured
// while serving it carry the request snapshot and user. Handler panics are
// captured and answered with 500; http.ErrAbortHandler is re-raised.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := request.NewContext(r.Context(), request.NewHTTPProvider(r))
		r = r.WithContext(ctx)

		c.breadcrumbs.Add(breadcrumb.Breadcrumb{
			Category: "http",
			Message:  r.Method + " " + r.URL.Path,
			Level:    string(event.LevelInfo),
		})
		c.metrics.SetBreadcrumbs(c.breadcrumbs.Count())

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			c.CaptureError(ctx, newPanicError(rec, 1), WithLevel(event.LevelFatal))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

package stacktrace

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armorclaw/raven/pkg/logger"
)

type framesError struct {
	frames []runtime.Frame
}

func (e *framesError) Error() string { return "frames" }
func (e *framesError) StackFrames() []runtime.Frame { return e.frames }

type textError struct {
	text string
}

func (e *textError) Error() string { return "text" }
func (e *textError) StackTraceText() string { return e.text }

type panickingWalker struct{}

func (panickingWalker) Walk(error) ([]Frame, bool) { panic("walker exploded") }

type panickingTextError struct{}

func (panickingTextError) Error() string { return "bad" }
func (panickingTextError) StackTraceText() string { panic("text exploded") }

func quietExtractor(observed *[]Strategy, opts ...Option) *Extractor {
	opts = append(opts,
		WithDiagnostics(logger.NewDiagnostics(logger.Discard())),
		WithObserver(func(s Strategy) { *observed = append(*observed, s) }),
	)
	return NewExtractor(opts...)
}

func TestExtractor_NilError(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)

	assert.Nil(t, ex.Extract(nil))
	assert.Empty(t, observed)
}

func TestExtractor_PkgErrorsNative(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)
	require.True(t, ex.NativeAvailable())

	frames := ex.Extract(pkgerrors.New("boom"))

	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0].Function, "TestExtractor_PkgErrorsNative")
	assert.Equal(t, "github.com/armorclaw/raven/pkg/stacktrace", frames[0].Module)
	assert.True(t, strings.HasSuffix(frames[0].Filename, "extract_test.go"))
	assert.Positive(t, frames[0].LineNumber)
	require.NotNil(t, frames[0].Source)
	assert.Equal(t, []Strategy{StrategyNative}, observed)
}

func TestExtractor_FramesCarrierPreservesCount(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)

	raw := []runtime.Frame{
		{Function: "github.com/a/b.(*Server).Serve", File: "/src/b/server.go", Line: 10},
		{Function: "github.com/a/b.Run", File: "/src/b/run.go", Line: 20},
		{Function: "main.main", File: "/src/main.go", Line: 3},
	}

	frames := ex.Extract(&framesError{frames: raw})

	require.Len(t, frames, len(raw))
	assert.Equal(t, "github.com/a/b.Server.Serve()", frames[0].Function)
	assert.Equal(t, "/src/b/server.go", frames[0].Filename)
	assert.Equal(t, 10, frames[0].LineNumber)
	assert.Equal(t, "main.main()", frames[2].Function)
	assert.Equal(t, []Strategy{StrategyNative}, observed)
}

func TestExtractor_CustomStackTracerRunsFirst(t *testing.T) {
	var observed []Strategy
	custom := func(err error) ([]runtime.Frame, bool) {
		return []runtime.Frame{{Function: "custom.Tracer", File: "c.go", Line: 1}}, true
	}
	ex := quietExtractor(&observed, WithStackTracer(custom))

	frames := ex.Extract(pkgerrors.New("boom"))

	require.Len(t, frames, 1)
	assert.Equal(t, "custom.Tracer()", frames[0].Function)
}

func TestExtractor_TextFallback(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)

	frames := ex.Extract(&textError{text: "at Foo.Bar() in /x/y.cs:line 10\nat Foo.Baz()"})

	require.Len(t, frames, 2)
	assert.Equal(t, "Foo.Bar()", frames[0].Function)
	assert.Equal(t, 10, frames[0].LineNumber)
	assert.Equal(t, "Foo.Baz()", frames[1].Function)
	assert.Equal(t, []Strategy{StrategyText}, observed)
}

func TestExtractor_PanickingWalkerFallsBackToText(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed, WithWalker(panickingWalker{}))

	frames := ex.Extract(&textError{text: "   at Foo.Bar() in /x/y.cs:line 10"})

	require.Len(t, frames, 1)
	assert.Equal(t, "Foo.Bar()", frames[0].Function)
	assert.Equal(t, []Strategy{StrategyText}, observed)
}

func TestExtractor_WithoutNativeParsesVerboseText(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed, WithoutNative())
	assert.False(t, ex.NativeAvailable())

	frames := ex.Extract(pkgerrors.New("boom"))

	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0].Function, "TestExtractor_WithoutNativeParsesVerboseText")
	assert.Equal(t, []Strategy{StrategyText}, observed)
}

func TestExtractor_NoTraceYieldsEmpty(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)

	frames := ex.Extract(errors.New("plain"))

	assert.NotNil(t, frames)
	assert.Empty(t, frames)
	assert.Equal(t, []Strategy{StrategyNone}, observed)
}

func TestExtractor_TotalFailureYieldsEmpty(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed, WithWalker(panickingWalker{}))

	var frames []Frame
	require.NotPanics(t, func() {
		frames = ex.Extract(panickingTextError{})
	})

	assert.NotNil(t, frames)
	assert.Empty(t, frames)
	assert.Equal(t, []Strategy{StrategyNone}, observed)
}

func TestExtractor_WrappedErrorUsesOuterOnly(t *testing.T) {
	var observed []Strategy
	ex := quietExtractor(&observed)

	inner := &framesError{frames: []runtime.Frame{{Function: "main.main", File: "m.go", Line: 1}}}
	frames := ex.Extract(fmt.Errorf("outer: %w", inner))

	assert.Empty(t, frames)
	assert.Equal(t, []Strategy{StrategyNone}, observed)
}

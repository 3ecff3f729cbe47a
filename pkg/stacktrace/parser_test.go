package stacktrace

import (
	"fmt"
	"runtime/debug"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser_AtFrameWithLocation(t *testing.T) {
	frames := NewTextParser().Parse("at Foo.Bar() in /x/y.cs:line 10")

	require.Len(t, frames, 1)
	assert.Equal(t, "Foo.Bar()", frames[0].Function)
	assert.Equal(t, "/x/y.cs", frames[0].Filename)
	assert.Equal(t, 10, frames[0].LineNumber)
	require.NotNil(t, frames[0].Source)
	assert.Equal(t, "Foo.Bar()", *frames[0].Source)
}

func TestTextParser_AtFrameWithoutLocation(t *testing.T) {
	frames := NewTextParser().Parse("at Foo.Bar()")

	require.Len(t, frames, 1)
	assert.Equal(t, "Foo.Bar()", frames[0].Function)
	assert.Empty(t, frames[0].Filename)
	assert.Zero(t, frames[0].LineNumber)
	assert.Nil(t, frames[0].ColumnNumber)
}

func TestTextParser_MultipleAtFrames(t *testing.T) {
	text := strings.Join([]string{
		"System.InvalidOperationException: nope",
		"   at App.Service.Run(String name) in C:\\src\\Service.cs:line 42",
		"   at App.Program.Main(String[] args)",
		"   at App.Loader.Start() in /src/Loader.cs:line 7",
	}, "\r\n")

	frames := NewTextParser().Parse(text)

	require.Len(t, frames, 3)
	assert.Equal(t, "App.Service.Run(String name)", frames[0].Function)
	assert.Equal(t, "C:\\src\\Service.cs", frames[0].Filename)
	assert.Equal(t, 42, frames[0].LineNumber)
	assert.Equal(t, "App.Program.Main(String[] args)", frames[1].Function)
	assert.Empty(t, frames[1].Filename)
	assert.Equal(t, "App.Loader.Start()", frames[2].Function)
	assert.Equal(t, 7, frames[2].LineNumber)
}

func TestTextParser_RoundTripsRenderedStacktrace(t *testing.T) {
	st := &Stacktrace{Frames: []Frame{
		{Function: "github.com/a/b.Worker.Run()", Filename: "/src/worker.go", LineNumber: 12},
		{Function: "main.main()", Filename: "/src/main.go", LineNumber: 5},
		{Function: "runtime.goexit()"},
	}}

	frames := NewTextParser().Parse(st.String())

	require.Len(t, frames, 3)
	for i, frame := range frames {
		assert.Equal(t, st.Frames[i].Function, frame.Function)
		assert.Equal(t, st.Frames[i].Filename, frame.Filename)
		assert.Equal(t, st.Frames[i].LineNumber, frame.LineNumber)
	}
}

func TestTextParser_GoroutineDump(t *testing.T) {
	dump := `goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/armorclaw/raven/pkg/client.(*Client).Recover(0xc0000a2000, {0x7a3b40, 0xc0000b4000})
	/src/raven/pkg/client/client.go:120 +0x1d
main.main()
	/src/app/main.go:8 +0x25
created by net/http.(*Server).Serve in goroutine 1
	/usr/local/go/src/net/http/server.go:3285 +0x4b4
`

	frames := NewTextParser().Parse(dump)

	require.Len(t, frames, 4)
	assert.Equal(t, "runtime/debug.Stack()", frames[0].Function)
	assert.Equal(t, "runtime/debug", frames[0].Module)
	assert.Equal(t, 26, frames[0].LineNumber)

	assert.Equal(t, "github.com/armorclaw/raven/pkg/client.Client.Recover()", frames[1].Function)
	assert.Equal(t, "/src/raven/pkg/client/client.go", frames[1].Filename)
	assert.Equal(t, 120, frames[1].LineNumber)

	assert.Equal(t, "main.main()", frames[2].Function)
	assert.Equal(t, "net/http.Server.Serve()", frames[3].Function)
	assert.Equal(t, 3285, frames[3].LineNumber)
}

func TestTextParser_RealDebugStack(t *testing.T) {
	frames := NewTextParser().Parse(string(debug.Stack()))

	require.NotEmpty(t, frames)
	found := false
	for _, frame := range frames {
		assert.NotEmpty(t, frame.Function)
		if strings.Contains(frame.Function, "TestTextParser_RealDebugStack") {
			found = true
			assert.True(t, strings.HasSuffix(frame.Filename, "parser_test.go"))
		}
	}
	assert.True(t, found, "test function should appear in parsed frames")
}

func TestTextParser_PkgErrorsVerboseFormat(t *testing.T) {
	err := pkgerrors.New("boom")

	frames := NewTextParser().Parse(fmt.Sprintf("%+v", err))

	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0].Function, "TestTextParser_PkgErrorsVerboseFormat")
	assert.True(t, strings.HasSuffix(frames[0].Filename, "parser_test.go"))
	assert.Positive(t, frames[0].LineNumber)
}

func TestTextParser_Garbage(t *testing.T) {
	frames := NewTextParser().Parse("nothing that looks like a trace\nat\n")

	assert.NotNil(t, frames)
	assert.Empty(t, frames)
}

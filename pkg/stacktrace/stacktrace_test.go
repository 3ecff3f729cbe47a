package stacktrace

import (
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStacktrace_String(t *testing.T) {
	st := &Stacktrace{Frames: []Frame{{Function: "A"}, {Function: "B"}}}
	assert.Equal(t, "   at A\n   at B\n", st.String())

	st = &Stacktrace{Frames: []Frame{{Function: "A()", Filename: "a.go", LineNumber: 4}}}
	assert.Equal(t, "   at A() in a.go:line 4\n", st.String())
}

func TestStacktrace_StringEmpty(t *testing.T) {
	assert.Equal(t, "", (&Stacktrace{}).String())
	assert.Equal(t, "", (&Stacktrace{Frames: []Frame{}}).String())

	var st *Stacktrace
	assert.Equal(t, "", st.String())
}

func TestNew_NilError(t *testing.T) {
	st := New(nil, nil)

	require.NotNil(t, st)
	assert.Nil(t, st.Frames)
	assert.False(t, st.HasTrace())
}

func TestNew_ErrorWithoutTrace(t *testing.T) {
	st := New(nil, errors.New("plain"))

	assert.True(t, st.HasTrace())
	assert.Empty(t, st.Frames)
	assert.Equal(t, "", st.String())
}

func TestNew_PkgErrors(t *testing.T) {
	st := New(nil, pkgerrors.New("boom"))

	require.NotEmpty(t, st.Frames)
	assert.Contains(t, st.Frames[0].Function, "TestNew_PkgErrors")
	assert.True(t, strings.HasPrefix(st.String(), "   at "))
}

func TestCapture(t *testing.T) {
	st := Capture(0)

	require.NotEmpty(t, st.Frames)
	assert.Contains(t, st.Frames[0].Function, "TestCapture")
	assert.True(t, strings.HasSuffix(st.Frames[0].Filename, "stacktrace_test.go"))
}

func captureFromHelper() *Stacktrace {
	return Capture(1)
}

func TestCapture_Skip(t *testing.T) {
	st := captureFromHelper()

	require.NotEmpty(t, st.Frames)
	assert.Contains(t, st.Frames[0].Function, "TestCapture_Skip")
}

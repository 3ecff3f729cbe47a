package stacktrace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFunctionName(t *testing.T) {
	tests := []struct {
		symbol string
		want   qualifiedName
		format string
	}{
		{
			symbol: "github.com/armorclaw/raven/pkg/client.(*Client).CaptureError",
			want:   qualifiedName{pkg: "github.com/armorclaw/raven/pkg/client", typeName: "Client", method: "CaptureError"},
			format: "github.com/armorclaw/raven/pkg/client.Client.CaptureError()",
		},
		{
			symbol: "github.com/armorclaw/raven/pkg/request.Snapshot.Clone",
			want:   qualifiedName{pkg: "github.com/armorclaw/raven/pkg/request", typeName: "Snapshot", method: "Clone"},
			format: "github.com/armorclaw/raven/pkg/request.Snapshot.Clone()",
		},
		{
			symbol: "main.main",
			want:   qualifiedName{pkg: "main", method: "main"},
			format: "main.main()",
		},
		{
			symbol: "net/http.HandlerFunc.ServeHTTP",
			want:   qualifiedName{pkg: "net/http", typeName: "HandlerFunc", method: "ServeHTTP"},
			format: "net/http.HandlerFunc.ServeHTTP()",
		},
		{
			symbol: "github.com/a/b.Run.func1",
			want:   qualifiedName{pkg: "github.com/a/b", method: "Run.func1"},
			format: "github.com/a/b.Run.func1()",
		},
		{
			symbol: "github.com/a/b.(*Server).Serve.func2.1",
			want:   qualifiedName{pkg: "github.com/a/b", typeName: "Server", method: "Serve.func2.1"},
			format: "github.com/a/b.Server.Serve.func2.1()",
		},
		{
			symbol: "github.com/a/b.Map[...].Get",
			want:   qualifiedName{pkg: "github.com/a/b", typeName: "Map", method: "Get"},
			format: "github.com/a/b.Map.Get()",
		},
		{
			symbol: "orphan",
			want:   qualifiedName{method: "orphan"},
			format: "orphan()",
		},
		{
			symbol: "",
			want:   qualifiedName{method: UnknownFunction},
			format: UnknownFunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got := splitFunctionName(tt.symbol)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.format, formatFunction(got))
		})
	}
}

func TestFrame_String(t *testing.T) {
	withFile := Frame{Function: "Foo.Bar()", Filename: "/x/y.go", LineNumber: 10}
	assert.Equal(t, "Foo.Bar() in /x/y.go:line 10", withFile.String())

	withoutFile := Frame{Function: "Foo.Bar()"}
	assert.Equal(t, "Foo.Bar()", withoutFile.String())
}

func TestFrame_JSONOmitsNilOptionalFields(t *testing.T) {
	data, err := json.Marshal(Frame{Function: "f()", Filename: "f.go", Module: "m", LineNumber: 3})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "source")
	assert.NotContains(t, fields, "column_number")
	assert.Equal(t, "f()", fields["function"])
	assert.Equal(t, float64(3), fields["line_number"])

	col := 7
	data, err = json.Marshal(Frame{Function: "f()", Source: stringPtr("mod"), ColumnNumber: &col})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "mod", fields["source"])
	assert.Equal(t, float64(7), fields["column_number"])
}

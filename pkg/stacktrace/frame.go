// Package stacktrace turns errors into normalized, serializable stack frames.
//
// Two extraction strategies exist. The native strategy walks program counters
// carried by the error (github.com/pkg/errors stacks, []runtime.Frame or raw
// callers) through runtime.CallersFrames. When an error carries no program
// counters, or walking them fails, the textual strategy parses whatever trace
// text the error renders. Both strategies are best effort and never return an
// error to the caller.
package stacktrace

import (
	"strconv"
	"strings"
)

// UnknownFunction is the placeholder used when a frame has no resolvable
// function name.
const UnknownFunction = "???"

// Frame is one normalized call site.
type Frame struct {
	Function     string  `json:"function"`
	Filename     string  `json:"filename,omitempty"`
	Module       string  `json:"module,omitempty"`
	Source       *string `json:"source,omitempty"`
	LineNumber   int     `json:"line_number"`
	ColumnNumber *int    `json:"column_number,omitempty"`
}

// String renders the frame the way trace text shows it:
//
//	pkg.Type.Method() in /src/file.go:line 42
func (f Frame) String() string {
	var sb strings.Builder
	sb.WriteString(f.Function)
	if f.Filename != "" {
		sb.WriteString(" in ")
		sb.WriteString(f.Filename)
		sb.WriteString(":line ")
		sb.WriteString(strconv.Itoa(f.LineNumber))
	}
	return sb.String()
}

func stringPtr(s string) *string {
	return &s
}

// qualifiedName is a Go symbol split into the parts a frame reports.
type qualifiedName struct {
	pkg      string // import path, e.g. github.com/armorclaw/raven/pkg/client
	typeName string // declaring type without pointer decoration, may be empty
	method   string // function or method name, closures keep their suffix
}

// splitFunctionName splits a runtime symbol such as
// "github.com/a/b.(*Client).Capture.func1" into package, type and method.
func splitFunctionName(symbol string) qualifiedName {
	name := stripTypeParams(symbol)
	if name == "" {
		return qualifiedName{method: UnknownFunction}
	}

	lastSlash := strings.LastIndex(name, "/")
	dot := strings.Index(name[lastSlash+1:], ".")
	if dot < 0 {
		return qualifiedName{method: name}
	}
	dot += lastSlash + 1

	qn := qualifiedName{pkg: name[:dot]}
	rest := name[dot+1:]

	// Pointer receivers are always parenthesized: (*T).M
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")."); end > 0 {
			qn.typeName = strings.TrimPrefix(rest[1:end], "*")
			qn.method = rest[end+2:]
			return qn
		}
	}

	first, after, found := strings.Cut(rest, ".")
	if !found || isClosureSuffix(after) {
		qn.method = rest
		return qn
	}
	qn.typeName = first
	qn.method = after
	return qn
}

// isClosureSuffix reports whether s is the compiler suffix of an anonymous
// function ("func1", "func1.2", "1").
func isClosureSuffix(s string) bool {
	head, _, _ := strings.Cut(s, ".")
	if strings.HasPrefix(head, "func") {
		head = head[len("func"):]
	}
	if head == "" {
		return false
	}
	for _, r := range head {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripTypeParams removes instantiation brackets: "pkg.Map[...].Get" -> "pkg.Map.Get".
func stripTypeParams(name string) string {
	if !strings.Contains(name, "[") {
		return name
	}
	var sb strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// formatFunction renders the frame function as "pkg/path.Type.Method()" for
// methods, "pkg/path.Func()" for package functions and "Func()" when the
// symbol carries no package. Go frames carry no parameter types, so the
// parameter list is always empty.
func formatFunction(qn qualifiedName) string {
	if qn.method == UnknownFunction {
		return UnknownFunction
	}
	var sb strings.Builder
	if qn.pkg != "" {
		sb.WriteString(qn.pkg)
		sb.WriteByte('.')
	}
	if qn.typeName != "" {
		sb.WriteString(qn.typeName)
		sb.WriteByte('.')
	}
	sb.WriteString(qn.method)
	sb.WriteString("()")
	return sb.String()
}

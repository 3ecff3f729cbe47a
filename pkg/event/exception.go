package event

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/armorclaw/raven/pkg/stacktrace"
)

// MaxChainDepth bounds the number of exceptions taken from one error chain.
const MaxChainDepth = 16

// Exception is one error of a captured chain.
type Exception struct {
	Type       string                 `json:"type"`
	Value      string                 `json:"value"`
	Module     string                 `json:"module,omitempty"`
	Stacktrace *stacktrace.Stacktrace `json:"stacktrace,omitempty"`
}

// NewException describes err. It returns nil for a nil error.
func NewException(ex *stacktrace.Extractor, err error) *Exception {
	if err == nil {
		return nil
	}
	typeName, module := errorType(err)
	return &Exception{
		Type:       typeName,
		Value:      err.Error(),
		Module:     module,
		Stacktrace: stacktrace.New(ex, err),
	}
}

// Exceptions describes every error in the chain of err, outermost first.
// Errors joined with errors.Join are visited depth first. At most
// MaxChainDepth exceptions are returned.
func Exceptions(ex *stacktrace.Extractor, err error) []Exception {
	if err == nil {
		return nil
	}

	var out []Exception
	var walk func(error)
	walk = func(e error) {
		if e == nil || len(out) >= MaxChainDepth {
			return
		}
		out = append(out, *NewException(ex, e))

		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(e))
		}
	}
	walk(err)
	return out
}

// errorType returns the type name of err without pointer markers, and the
// import path of the package declaring it.
func errorType(err error) (string, string) {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	return name, t.PkgPath()
}

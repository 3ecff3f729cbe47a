package request

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// Keys with these prefixes repeat information found elsewhere in the
// server variables and are never copied.
var noisePrefixes = []string{"ALL_", "HTTP_"}

// Valuer is implemented by collection values that are not strings but carry
// one, such as cookie objects.
type Valuer interface {
	Value() string
}

var errNilValue = errors.New("value is nil")

// Normalize flattens c into a string map using the default snapshotter.
func Normalize(c Collection) map[string]string {
	return defaultSnapshotter.Normalize("collection", c)
}

// Normalize flattens c into a string map. Keys are snapshotted before any
// value is read. Nil keys and keys starting with ALL_ or HTTP_ are skipped.
// A value that is not a string is replaced by its Value field, or by the
// text of the error raised while reading it. A key whose read panics keeps
// the panic text and the remaining keys are still read. If the collection
// cannot be enumerated, or no key could be read, the result is empty.
// Failures are logged under name.
func (s *Snapshotter) Normalize(name string, c Collection) (out map[string]string) {
	out = make(map[string]string)
	if isNil(c) {
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			s.diagnostics().Normalize(name, fmt.Errorf("panic: %v", r))
			out = make(map[string]string)
		}
	}()

	keys := append([]any(nil), c.Keys()...)
	failed := make(map[string]string)
	read := 0
	for _, key := range keys {
		if key == nil {
			continue
		}
		k, ok := key.(string)
		if !ok {
			k = fmt.Sprint(key)
		}
		if isNoiseKey(k) {
			continue
		}

		value, err := getValue(c, k)
		if err != nil {
			s.diagnostics().Normalize(name, err)
			failed[k] = err.Error()
			continue
		}
		read++
		if str, ok := value.(string); ok {
			out[k] = str
			continue
		}

		str, err := valueOf(value)
		if err != nil {
			out[k] = err.Error()
			continue
		}
		out[k] = str
	}
	if read == 0 {
		return make(map[string]string)
	}
	for k, msg := range failed {
		if _, ok := out[k]; !ok {
			out[k] = msg
		}
	}
	return out
}

func getValue(c Collection, key string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("reading %q: panic: %v", key, r)
		}
	}()
	return c.Get(key), nil
}

func isNoiseKey(key string) bool {
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// valueOf reads the Value of a non-string collection entry.
func valueOf(v any) (str string, err error) {
	defer func() {
		if r := recover(); r != nil {
			str, err = "", fmt.Errorf("reading Value of %T: panic: %v", v, r)
		}
	}()

	switch val := v.(type) {
	case nil:
		return "", errNilValue
	case *http.Cookie:
		if val == nil {
			return "", errNilValue
		}
		return val.Value, nil
	case http.Cookie:
		return val.Value, nil
	case Valuer:
		return val.Value(), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", errNilValue
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		field := rv.FieldByName("Value")
		if field.IsValid() && field.CanInterface() {
			if field.Kind() == reflect.String {
				return field.String(), nil
			}
			return fmt.Sprint(field.Interface()), nil
		}
	}
	return "", fmt.Errorf("%T has no Value", v)
}

// isNil reports whether v is nil or an interface holding a nil pointer,
// map, slice or func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

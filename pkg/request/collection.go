package request

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Map is a Collection over a plain map. Keys are enumerated in sorted order.
type Map map[string]any

func (m Map) Keys() []any {
	keys := make([]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		keys = append(keys, k)
	}
	return keys
}

func (m Map) Get(key string) any {
	return m[key]
}

// Header is a Collection over HTTP headers. Repeated values are joined with
// ", ".
type Header http.Header

func (h Header) Keys() []any {
	return sortedKeys(h)
}

func (h Header) Get(key string) any {
	values, ok := h[key]
	if !ok {
		return nil
	}
	return strings.Join(values, ", ")
}

// Values is a Collection over query or form values. Repeated values are
// joined with ",".
type Values url.Values

func (v Values) Keys() []any {
	return sortedKeys(v)
}

func (v Values) Get(key string) any {
	values, ok := v[key]
	if !ok {
		return nil
	}
	return strings.Join(values, ",")
}

// Cookies is a Collection over request cookies. Values are the *http.Cookie
// itself; Normalize reads their Value field.
type Cookies []*http.Cookie

func (c Cookies) Keys() []any {
	keys := make([]any, 0, len(c))
	for _, cookie := range c {
		if cookie == nil {
			keys = append(keys, nil)
			continue
		}
		keys = append(keys, cookie.Name)
	}
	return keys
}

func (c Cookies) Get(key string) any {
	for _, cookie := range c {
		if cookie != nil && cookie.Name == key {
			return cookie
		}
	}
	return nil
}

func sortedKeys(m map[string][]string) []any {
	keys := make([]any, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		keys = append(keys, k)
	}
	return keys
}

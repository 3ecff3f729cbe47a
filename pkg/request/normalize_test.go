package request

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/armorclaw/raven/pkg/logger"
)

func quietSnapshotter() *Snapshotter {
	return NewSnapshotter(logger.NewDiagnostics(logger.Discard()), NewRegistry(nil))
}

type keyedCollection struct {
	keys   []any
	values map[string]any
}

func (c *keyedCollection) Keys() []any { return c.keys }
func (c *keyedCollection) Get(key string) any { return c.values[key] }

type throwingCollection struct{}

func (throwingCollection) Keys() []any { return []any{"a", "b"} }
func (throwingCollection) Get(string) any { panic("access denied") }

type throwingKeys struct{}

func (throwingKeys) Keys() []any { panic("enumeration failed") }
func (throwingKeys) Get(string) any { return "x" }

type valuer struct{ v string }

func (v valuer) Value() string { return v.v }

type panickingValuer struct{}

func (panickingValuer) Value() string { panic("cookie jar on fire") }

type cookieLike struct {
	Name  string
	Value string
}

type mutatingCollection struct {
	values map[string]any
}

func (c *mutatingCollection) Keys() []any {
	return []any{"first", "second"}
}

func (c *mutatingCollection) Get(key string) any {
	c.values["third"] = "added during iteration"
	return c.values[key]
}

func TestNormalize_FiltersNoiseKeys(t *testing.T) {
	got := quietSnapshotter().Normalize("env", Map{
		"ALL_RAW":    "x",
		"HTTP_HOST":  "y",
		"User-Agent": "z",
	})

	assert.Equal(t, map[string]string{"User-Agent": "z"}, got)
}

func TestNormalize_ValueField(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"valuer", valuer{v: "abc"}, "abc"},
		{"cookie pointer", &http.Cookie{Name: "session", Value: "abc"}, "abc"},
		{"cookie value", http.Cookie{Name: "session", Value: "abc"}, "abc"},
		{"struct field", cookieLike{Name: "session", Value: "abc"}, "abc"},
		{"struct pointer field", &cookieLike{Name: "session", Value: "abc"}, "abc"},
		{"non-string field", struct{ Value int }{Value: 42}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quietSnapshotter().Normalize("cookies", Map{"session": tt.value})
			assert.Equal(t, map[string]string{"session": tt.want}, got)
		})
	}
}

func TestNormalize_ValueFailureStoresError(t *testing.T) {
	got := quietSnapshotter().Normalize("cookies", Map{
		"nil":      nil,
		"number":   12,
		"panicker": panickingValuer{},
	})

	assert.Len(t, got, 3)
	assert.Equal(t, errNilValue.Error(), got["nil"])
	assert.Equal(t, "int has no Value", got["number"])
	assert.Contains(t, got["panicker"], "cookie jar on fire")
}

func TestNormalize_KeyCoercion(t *testing.T) {
	c := &keyedCollection{
		keys: []any{nil, 7, "name", "HTTP_X"},
		values: map[string]any{
			"7":      "seven",
			"name":   "value",
			"HTTP_X": "noise",
		},
	}

	got := quietSnapshotter().Normalize("data", c)

	assert.Equal(t, map[string]string{"7": "seven", "name": "value"}, got)
}

func TestNormalize_DuplicateKeysLastWriteWins(t *testing.T) {
	c := &keyedCollection{
		keys:   []any{"1", 1},
		values: map[string]any{"1": "one"},
	}

	got := quietSnapshotter().Normalize("data", c)

	assert.Equal(t, map[string]string{"1": "one"}, got)
}

func TestNormalize_KeysSnapshottedBeforeIteration(t *testing.T) {
	c := &mutatingCollection{values: map[string]any{"first": "1", "second": "2"}}

	got := quietSnapshotter().Normalize("headers", c)

	assert.Equal(t, map[string]string{"first": "1", "second": "2"}, got)
}

type partlyThrowingCollection struct{}

func (partlyThrowingCollection) Keys() []any { return []any{"good1", "bad", "good2"} }
func (partlyThrowingCollection) Get(key string) any {
	if key == "bad" {
		panic("access denied")
	}
	return "ok-" + key
}

func TestNormalize_KeyFailureKeepsOtherKeys(t *testing.T) {
	got := quietSnapshotter().Normalize("headers", partlyThrowingCollection{})

	assert.Equal(t, "ok-good1", got["good1"])
	assert.Equal(t, "ok-good2", got["good2"])
	assert.Contains(t, got["bad"], "access denied")
	assert.Len(t, got, 3)
}

func TestNormalize_NeverPanics(t *testing.T) {
	s := quietSnapshotter()

	tests := []struct {
		name string
		c    Collection
	}{
		{"throwing access", throwingCollection{}},
		{"throwing keys", throwingKeys{}},
		{"nil collection", nil},
		{"nil map", Map(nil)},
		{"nil pointer", (*keyedCollection)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			assert.NotPanics(t, func() {
				got = s.Normalize("env", tt.c)
			})
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestNormalize_PackageLevel(t *testing.T) {
	logger.SetGlobal(logger.Discard())

	got := Normalize(Header{"Accept": {"text/html", "application/json"}})

	assert.Equal(t, map[string]string{"Accept": "text/html, application/json"}, got)
}

// Package breadcrumb keeps the recent application events that are attached
// to every captured error.
package breadcrumb

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSize is the buffer capacity used when none is given.
const DefaultSize = 20

// Breadcrumb is one recorded application event.
type Breadcrumb struct {
	Timestamp time.Time      `json:"timestamp"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     string         `json:"level,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Buffer is a thread-safe circular buffer of breadcrumbs
type Buffer struct {
	crumbs []Breadcrumb
	size   int
	head   int
	count  int
	mu     sync.RWMutex
}

// NewBuffer creates a buffer with the given capacity
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		crumbs: make([]Breadcrumb, size),
		size:   size,
	}
}

// Add adds a breadcrumb, overwriting the oldest when full. A zero timestamp
// is set to now.
func (b *Buffer) Add(crumb Breadcrumb) {
	if crumb.Timestamp.IsZero() {
		crumb.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.crumbs[b.head] = crumb
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Record adds an info breadcrumb
func (b *Buffer) Record(category, message string, data map[string]any) {
	b.Add(Breadcrumb{
		Category: category,
		Message:  message,
		Level:    "info",
		Data:     data,
	})
}

// All returns every breadcrumb, oldest first
func (b *Buffer) All() []Breadcrumb {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}

	result := make([]Breadcrumb, b.count)

	// A full buffer starts at head, the oldest entry
	start := 0
	if b.count >= b.size {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		result[i] = b.crumbs[(start+i)%b.size]
	}
	return result
}

// Last returns the n most recent breadcrumbs, oldest first
func (b *Buffer) Last(n int) []Breadcrumb {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]Breadcrumb, n)
	for i := 0; i < n; i++ {
		idx := (b.head - 1 - i + b.size) % b.size
		result[n-1-i] = b.crumbs[idx]
	}
	return result
}

// Clear removes all breadcrumbs
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.crumbs = make([]Breadcrumb, b.size)
	b.head = 0
	b.count = 0
}

// Count returns the number of breadcrumbs held
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Size returns the capacity
func (b *Buffer) Size() int {
	return b.size
}

// Tracker records breadcrumbs for one category
type Tracker struct {
	category string
	buffer   *Buffer
}

// NewTracker creates a tracker writing to buffer
func NewTracker(category string, buffer *Buffer) *Tracker {
	return &Tracker{category: category, buffer: buffer}
}

// Category returns the tracker's category
func (t *Tracker) Category() string {
	return t.category
}

// Event records an event with optional data
func (t *Tracker) Event(message string, data map[string]any) {
	t.buffer.Record(t.category, message, data)
}

// Eventf records an event with a formatted message
func (t *Tracker) Eventf(format string, args ...any) {
	t.Event(formatString(format, args...), nil)
}

// Start records an operation start
func (t *Tracker) Start(operation string, data map[string]any) {
	t.Event(operation+"_start", data)
}

// Success records a successful operation
func (t *Tracker) Success(operation string, data map[string]any) {
	t.Event(operation+"_success", data)
}

// Failure records a failed operation at error level
func (t *Tracker) Failure(operation string, err error, data map[string]any) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	t.buffer.Add(Breadcrumb{
		Category: t.category,
		Message:  operation + "_failure",
		Level:    "error",
		Data:     mergeData(data, map[string]any{"error": errMsg}),
	})
}

func formatString(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func mergeData(base, extra map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range extra {
		result[k] = v
	}
	return result
}

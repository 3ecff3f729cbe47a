package breadcrumb

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBuffer_AddAndAll(t *testing.T) {
	b := NewBuffer(5)

	for i := 1; i <= 3; i++ {
		b.Add(Breadcrumb{Message: "event", Data: map[string]any{"n": i}})
	}

	crumbs := b.All()
	if len(crumbs) != 3 {
		t.Fatalf("All() returned %d breadcrumbs, want 3", len(crumbs))
	}

	// Oldest first
	for i := 0; i < 3; i++ {
		if crumbs[i].Data["n"].(int) != i+1 {
			t.Errorf("Breadcrumb %d has n=%v, want %d", i, crumbs[i].Data["n"], i+1)
		}
		if crumbs[i].Timestamp.IsZero() {
			t.Errorf("Breadcrumb %d has zero timestamp", i)
		}
	}
}

func TestBuffer_Overflow(t *testing.T) {
	b := NewBuffer(3)

	for i := 1; i <= 5; i++ {
		b.Add(Breadcrumb{Data: map[string]any{"n": i}})
	}

	crumbs := b.All()
	if len(crumbs) != 3 {
		t.Fatalf("All() returned %d breadcrumbs, want 3", len(crumbs))
	}

	// 1 and 2 were overwritten
	for i, expected := range []int{3, 4, 5} {
		if crumbs[i].Data["n"].(int) != expected {
			t.Errorf("Breadcrumb %d has n=%v, want %d", i, crumbs[i].Data["n"], expected)
		}
	}
}

func TestBuffer_Last(t *testing.T) {
	b := NewBuffer(10)

	for i := 1; i <= 5; i++ {
		b.Add(Breadcrumb{Data: map[string]any{"n": i}})
	}

	last3 := b.Last(3)
	if len(last3) != 3 {
		t.Fatalf("Last(3) returned %d breadcrumbs, want 3", len(last3))
	}
	if last3[2].Data["n"].(int) != 5 {
		t.Errorf("Most recent breadcrumb should be 5, got %v", last3[2].Data["n"])
	}

	if got := len(b.Last(10)); got != 5 {
		t.Errorf("Last(10) returned %d breadcrumbs, want 5", got)
	}
}

func TestBuffer_KeepsTimestamp(t *testing.T) {
	b := NewBuffer(2)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	b.Add(Breadcrumb{Timestamp: ts})

	if got := b.All()[0].Timestamp; !got.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got, ts)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer(5)
	b.Record("http", "GET /", nil)
	b.Record("http", "GET /health", nil)

	b.Clear()

	if b.Count() != 0 {
		t.Errorf("After Clear(), Count() = %d, want 0", b.Count())
	}
	if b.All() != nil {
		t.Error("After Clear(), All() should return nil")
	}
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer(5)

	if b.All() != nil {
		t.Error("Empty buffer All() should return nil")
	}
	if b.Last(5) != nil {
		t.Error("Empty buffer Last() should return nil")
	}
}

func TestBuffer_DefaultSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		if got := NewBuffer(size).Size(); got != DefaultSize {
			t.Errorf("NewBuffer(%d).Size() = %d, want %d", size, got, DefaultSize)
		}
	}
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer(100)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Record("test", "event", map[string]any{"n": id*10 + j})
			}
		}(i)
	}
	wg.Wait()

	if b.Count() != 100 {
		t.Errorf("Count() = %d, want 100", b.Count())
	}
}

func TestTracker_Operations(t *testing.T) {
	b := NewBuffer(10)
	tr := NewTracker("db", b)

	tr.Start("query", map[string]any{"table": "orders"})
	tr.Success("query", nil)
	tr.Failure("query", errors.New("timeout"), map[string]any{"table": "orders"})
	tr.Eventf("pool size %d", 4)

	crumbs := b.All()
	if len(crumbs) != 4 {
		t.Fatalf("Expected 4 breadcrumbs, got %d", len(crumbs))
	}

	expected := []string{"query_start", "query_success", "query_failure", "pool size 4"}
	for i, msg := range expected {
		if crumbs[i].Message != msg {
			t.Errorf("Breadcrumb %d = %q, want %q", i, crumbs[i].Message, msg)
		}
		if crumbs[i].Category != "db" {
			t.Errorf("Breadcrumb %d category = %q, want db", i, crumbs[i].Category)
		}
	}

	failure := crumbs[2]
	if failure.Level != "error" {
		t.Errorf("Failure level = %q, want error", failure.Level)
	}
	if failure.Data["error"] != "timeout" || failure.Data["table"] != "orders" {
		t.Errorf("Failure data = %v", failure.Data)
	}
}

func TestTracker_FailureNilError(t *testing.T) {
	b := NewBuffer(2)
	NewTracker("db", b).Failure("connect", nil, nil)

	if got := b.All()[0].Data["error"]; got != "unknown error" {
		t.Errorf("error = %v, want unknown error", got)
	}
}

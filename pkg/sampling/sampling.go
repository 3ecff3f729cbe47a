// Package sampling deduplicates repeated events so a hot error loop does not
// flood the transports.
package sampling

import (
	"sync"
	"time"

	"github.com/armorclaw/raven/pkg/event"
)

// Record tracks occurrences of one fingerprint
type Record struct {
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	LastSent   time.Time `json:"last_sent"`
	Count      int       `json:"count"`
	Suppressed int       `json:"suppressed"`
	EventID    string    `json:"event_id"`
}

// Config configures the registry
type Config struct {
	Window    time.Duration // Repeats inside the window are dropped (default 1m)
	Retention time.Duration // Idle records are forgotten after this (default 24h)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Window:    time.Minute,
		Retention: 24 * time.Hour,
	}
}

// Registry decides which packets are sent
type Registry struct {
	seen        map[string]*Record // fingerprint -> record
	mu          sync.RWMutex
	window      time.Duration
	retention   time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// NewRegistry creates a registry
func NewRegistry(cfg Config) *Registry {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}

	return &Registry{
		seen:        make(map[string]*Record),
		window:      cfg.Window,
		retention:   cfg.Retention,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// ShouldSend reports whether p should be delivered:
//   - Fatal: always sent
//   - First occurrence of a fingerprint: sent
//   - Repeat within the window since the last send: dropped, counted
//   - Repeat after the window: sent with the suppressed count in
//     extra["repeat_count"]
func (r *Registry) ShouldSend(p *event.Packet) bool {
	fingerprint := p.Fingerprint()
	ts := p.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.maybeCleanup()

	record, exists := r.seen[fingerprint]
	if !exists {
		r.seen[fingerprint] = &Record{
			FirstSeen: ts,
			LastSeen:  ts,
			LastSent:  ts,
			Count:     1,
			EventID:   p.EventID,
		}
		return true
	}

	record.Count++
	record.LastSeen = ts

	if p.Level != event.LevelFatal && ts.Sub(record.LastSent) < r.window {
		record.Suppressed++
		return false
	}

	if record.Suppressed > 0 {
		p.SetExtra("repeat_count", record.Suppressed)
	}
	record.Suppressed = 0
	record.LastSent = ts
	record.EventID = p.EventID
	return true
}

// Get returns a copy of the record for a fingerprint
func (r *Registry) Get(fingerprint string) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if record, ok := r.seen[fingerprint]; ok {
		cp := *record
		return &cp
	}
	return nil
}

// Forget removes a fingerprint so its next occurrence is sent as a first
func (r *Registry) Forget(fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, fingerprint)
}

// Clear removes all records
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string]*Record)
}

// Stats holds registry statistics
type Stats struct {
	Fingerprints     int           `json:"fingerprints"`
	TotalOccurrences int           `json:"total_occurrences"`
	Suppressed       int           `json:"suppressed"`
	Window           time.Duration `json:"window"`
	Retention        time.Duration `json:"retention"`
}

// Stats returns statistics about the registry
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Fingerprints: len(r.seen),
		Window:       r.window,
		Retention:    r.retention,
	}
	for _, record := range r.seen {
		stats.TotalOccurrences += record.Count
		stats.Suppressed += record.Suppressed
	}
	return stats
}

// maybeCleanup drops idle records at most once an hour
func (r *Registry) maybeCleanup() {
	now := r.now()
	if now.Sub(r.lastCleanup) < time.Hour {
		return
	}
	r.cleanup(now)
}

// ForceCleanup drops idle records immediately
func (r *Registry) ForceCleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanup(r.now())
}

func (r *Registry) cleanup(now time.Time) {
	r.lastCleanup = now
	for fingerprint, record := range r.seen {
		if now.Sub(record.LastSeen) > r.retention {
			delete(r.seen, fingerprint)
		}
	}
}

// Package store persists captured packets to SQLite, grouped by fingerprint.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/armorclaw/raven/pkg/event"
)

// ErrNotFound is returned when no stored event matches an id
var ErrNotFound = errors.New("event not found")

// Defaults
const (
	DefaultPath          = "/var/lib/raven/events.db"
	DefaultRetentionDays = 30
)

// Store persists packets to SQLite
type Store struct {
	db            *sql.DB
	path          string
	mu            sync.RWMutex
	retentionDays int
	now           func() time.Time
}

// Config configures the store
type Config struct {
	Path          string // Path to SQLite database file
	RetentionDays int    // Days to keep resolved events (0 = default 30)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Path:          DefaultPath,
		RetentionDays: DefaultRetentionDays,
	}
}

// Open opens or creates the store
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:            db,
		path:          cfg.Path,
		retentionDays: cfg.RetentionDays,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id      TEXT PRIMARY KEY,
			last_event_id TEXT NOT NULL,
			fingerprint   TEXT NOT NULL,
			level         TEXT NOT NULL,
			culprit       TEXT NOT NULL DEFAULT '',
			message       TEXT NOT NULL DEFAULT '',
			packet_json   TEXT NOT NULL,
			first_seen    TIMESTAMP NOT NULL,
			last_seen     TIMESTAMP NOT NULL,
			occurrences   INTEGER DEFAULT 1,
			resolved      BOOLEAN DEFAULT FALSE,
			resolved_by   TEXT,
			resolved_at   TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_events_fingerprint ON events(fingerprint);
		CREATE INDEX IF NOT EXISTS idx_events_last_event_id ON events(last_event_id);
		CREATE INDEX IF NOT EXISTS idx_events_level ON events(level);
		CREATE INDEX IF NOT EXISTS idx_events_resolved ON events(resolved);
		CREATE INDEX IF NOT EXISTS idx_events_first_seen ON events(first_seen);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Event is a group of packets sharing a fingerprint
type Event struct {
	EventID     string        `json:"event_id"`
	LastEventID string        `json:"last_event_id"`
	Fingerprint string        `json:"fingerprint"`
	Level       event.Level   `json:"level"`
	Culprit     string        `json:"culprit,omitempty"`
	Message     string        `json:"message"`
	Packet      *event.Packet `json:"packet,omitempty"`
	FirstSeen   time.Time     `json:"first_seen"`
	LastSeen    time.Time     `json:"last_seen"`
	Occurrences int           `json:"occurrences"`
	Resolved    bool          `json:"resolved"`
	ResolvedBy  string        `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// Name implements transport.Named
func (s *Store) Name() string {
	return "store"
}

// Send persists p. A packet whose fingerprint matches an unresolved group
// updates that group; otherwise a new group is created. Repeats suppressed by
// sampling count as occurrences.
func (s *Store) Send(ctx context.Context, p *event.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	packetJSON, err := p.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize packet: %w", err)
	}

	fingerprint := p.Fingerprint()
	seen := p.Timestamp.UTC()
	if p.Timestamp.IsZero() {
		seen = s.now()
	}
	occurrences := 1 + p.RepeatCount()

	var existingID string
	queryErr := s.db.QueryRowContext(ctx,
		"SELECT event_id FROM events WHERE fingerprint = ? AND resolved = FALSE ORDER BY last_seen DESC LIMIT 1",
		fingerprint,
	).Scan(&existingID)

	if queryErr == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE events SET
				last_event_id = ?,
				packet_json = ?,
				message = ?,
				last_seen = ?,
				occurrences = occurrences + ?
			WHERE event_id = ?
		`,
			p.EventID,
			string(packetJSON),
			p.Message,
			seen,
			occurrences,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		return nil
	}
	if !errors.Is(queryErr, sql.ErrNoRows) {
		return fmt.Errorf("failed to look up fingerprint: %w", queryErr)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, last_event_id, fingerprint, level, culprit, message, packet_json, first_seen, last_seen, occurrences)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.EventID,
		p.EventID,
		fingerprint,
		string(p.Level),
		p.Culprit,
		p.Message,
		string(packetJSON),
		seen,
		seen,
		occurrences,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Query defines parameters for querying events
type Query struct {
	Fingerprint string      // Filter by fingerprint
	Level       event.Level // Filter by level
	Culprit     string      // Filter by culprit
	Resolved    *bool       // Filter by resolved status (nil = all)
	Since       time.Time   // Only events first seen after this time
	Until       time.Time   // Only events first seen before this time
	Limit       int         // Max results (default 20, max 1000)
	Offset      int         // Pagination offset
	OrderBy     string      // "first_seen", "last_seen", "occurrences" (default "last_seen")
	OrderAsc    bool        // Sort ascending (default descending)
}

const selectColumns = "SELECT event_id, last_event_id, fingerprint, level, culprit, message, packet_json, first_seen, last_seen, occurrences, resolved, resolved_by, resolved_at FROM events"

// Query retrieves events matching q
func (s *Store) Query(ctx context.Context, q Query) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}

	query := selectColumns + " WHERE 1=1"
	args := []any{}

	if q.Fingerprint != "" {
		query += " AND fingerprint = ?"
		args = append(args, q.Fingerprint)
	}
	if q.Level != "" {
		query += " AND level = ?"
		args = append(args, string(q.Level))
	}
	if q.Culprit != "" {
		query += " AND culprit = ?"
		args = append(args, q.Culprit)
	}
	if q.Resolved != nil {
		query += " AND resolved = ?"
		args = append(args, *q.Resolved)
	}
	if !q.Since.IsZero() {
		query += " AND first_seen >= ?"
		args = append(args, q.Since.UTC())
	}
	if !q.Until.IsZero() {
		query += " AND first_seen <= ?"
		args = append(args, q.Until.UTC())
	}

	orderCol := "last_seen"
	switch q.OrderBy {
	case "first_seen", "occurrences":
		orderCol = q.OrderBy
	}
	orderDir := "DESC"
	if q.OrderAsc {
		orderDir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", orderCol, orderDir)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *ev)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*Event, error) {
	var ev Event
	var level, packetJSON string
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString

	err := row.Scan(
		&ev.EventID,
		&ev.LastEventID,
		&ev.Fingerprint,
		&level,
		&ev.Culprit,
		&ev.Message,
		&packetJSON,
		&ev.FirstSeen,
		&ev.LastSeen,
		&ev.Occurrences,
		&ev.Resolved,
		&resolvedBy,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Level = event.Level(level)

	var packet event.Packet
	if json.Unmarshal([]byte(packetJSON), &packet) == nil {
		ev.Packet = &packet
	}
	if resolvedBy.Valid {
		ev.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		ev.ResolvedAt = &resolvedAt.Time
	}
	return &ev, nil
}

// Get retrieves the group containing eventID, matching either the first or
// the latest packet of the group
func (s *Store) Get(ctx context.Context, eventID string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		selectColumns+" WHERE event_id = ? OR last_event_id = ? LIMIT 1",
		eventID, eventID,
	)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return ev, nil
}

// Resolve marks a group as resolved
func (s *Store) Resolve(ctx context.Context, eventID, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			resolved = TRUE,
			resolved_by = ?,
			resolved_at = ?
		WHERE event_id = ? OR last_event_id = ?
	`, resolvedBy, s.now(), eventID, eventID)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	return expectAffected(result, eventID)
}

// Unresolve reopens a group
func (s *Store) Unresolve(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE events SET
			resolved = FALSE,
			resolved_by = NULL,
			resolved_at = NULL
		WHERE event_id = ? OR last_event_id = ?
	`, eventID, eventID)
	if err != nil {
		return fmt.Errorf("unresolve failed: %w", err)
	}
	return expectAffected(result, eventID)
}

// Delete removes a group permanently
func (s *Store) Delete(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE event_id = ? OR last_event_id = ?",
		eventID, eventID,
	)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return expectAffected(result, eventID)
}

func expectAffected(result sql.Result, eventID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}
	return nil
}

// Cleanup removes resolved groups older than the retention period
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE resolved = TRUE AND resolved_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	return result.RowsAffected()
}

// Stats holds statistics about the store
type Stats struct {
	TotalEvents        int                 `json:"total_events"`
	UnresolvedEvents   int                 `json:"unresolved_events"`
	UniqueFingerprints int                 `json:"unique_fingerprints"`
	TotalOccurrences   int                 `json:"total_occurrences"`
	ByLevel            map[event.Level]int `json:"by_level"`
}

// Stats returns statistics about stored events
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN resolved = FALSE THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT fingerprint),
			COALESCE(SUM(occurrences), 0)
		FROM events
	`).Scan(&stats.TotalEvents, &stats.UnresolvedEvents, &stats.UniqueFingerprints, &stats.TotalOccurrences)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT level, COUNT(*) FROM events GROUP BY level")
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.ByLevel = make(map[event.Level]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return stats, err
		}
		stats.ByLevel[event.Level(level)] = count
	}
	return stats, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

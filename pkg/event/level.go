package event

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the severity of an event.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// ErrInvalidLevel is returned by ParseLevel for unknown names.
var ErrInvalidLevel = errors.New("invalid level")

// ParseLevel parses a level name. "warn" and "critical" are accepted as
// aliases of warning and fatal.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "fatal", "critical":
		return LevelFatal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, name)
}

// Emoji returns the marker used in summaries.
func (l Level) Emoji() string {
	switch l {
	case LevelDebug, LevelInfo:
		return "ℹ️"
	case LevelWarning:
		return "⚠️"
	case LevelFatal:
		return "🔴"
	default:
		return "❌"
	}
}

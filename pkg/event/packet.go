// Package event assembles captured errors into packets for delivery.
package event

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/armorclaw/raven/pkg/breadcrumb"
	"github.com/armorclaw/raven/pkg/request"
	"github.com/armorclaw/raven/pkg/stacktrace"
)

// Platform is reported in every packet.
const Platform = "go"

// Packet is one event as delivered to transports.
type Packet struct {
	// Identification
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Logger    string    `json:"logger,omitempty"`
	Platform  string    `json:"platform"`

	// Error details
	Message    string                 `json:"message,omitempty"`
	Culprit    string                 `json:"culprit,omitempty"`
	Exceptions []Exception            `json:"exception,omitempty"`
	Stacktrace *stacktrace.Stacktrace `json:"stacktrace,omitempty"`

	// Runtime
	ServerName  string `json:"server_name,omitempty"`
	Release     string `json:"release,omitempty"`
	Environment string `json:"environment,omitempty"`

	// Context
	Tags        map[string]string       `json:"tags,omitempty"`
	Extra       map[string]any          `json:"extra,omitempty"`
	Request     *request.Snapshot       `json:"request,omitempty"`
	User        *request.User           `json:"user,omitempty"`
	Breadcrumbs []breadcrumb.Breadcrumb `json:"breadcrumbs,omitempty"`
}

// Fingerprint groups packets describing the same problem: the culprit and
// the type of the root cause, or the message when there is no exception.
// Without a culprit the root cause's value joins the key, so stackless
// errors of one type only group when their text matches.
func (p *Packet) Fingerprint() string {
	key := p.Culprit + "|"
	if root := p.RootCause(); root != nil {
		key += root.Type
		if p.Culprit == "" {
			key += "|" + root.Value
		}
	} else {
		key += p.Message
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RootCause returns the innermost exception, or nil.
func (p *Packet) RootCause() *Exception {
	if len(p.Exceptions) == 0 {
		return nil
	}
	return &p.Exceptions[len(p.Exceptions)-1]
}

// RepeatCount returns the number of suppressed repeats reported with this
// packet.
func (p *Packet) RepeatCount() int {
	switch n := p.Extra["repeat_count"].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// SetExtra sets an extra value, allocating the map when needed.
func (p *Packet) SetExtra(key string, value any) {
	if p.Extra == nil {
		p.Extra = make(map[string]any)
	}
	p.Extra[key] = value
}

// SetTag sets a tag, allocating the map when needed.
func (p *Packet) SetTag(key, value string) {
	if p.Tags == nil {
		p.Tags = make(map[string]string)
	}
	p.Tags[key] = value
}

// JSON returns the wire encoding of the packet.
func (p *Packet) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// FormatJSON returns the packet as indented JSON
func (p *Packet) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Summary returns a human-readable summary
func (p *Packet) Summary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s %s: %s\n", p.Level.Emoji(), strings.ToUpper(string(p.Level)), p.title()))
	if p.Culprit != "" {
		sb.WriteString(fmt.Sprintf("📍 Culprit: %s\n", p.Culprit))
	}
	sb.WriteString(fmt.Sprintf("🏷️ Event ID: %s\n", p.EventID))
	sb.WriteString(fmt.Sprintf("⏰ %s\n", p.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")))

	if p.Request != nil && p.Request.URL != "" {
		sb.WriteString(fmt.Sprintf("🌐 %s %s\n", p.Request.Method, p.Request.URL))
	}
	if n := p.RepeatCount(); n > 0 {
		sb.WriteString(fmt.Sprintf("🔁 Repeated %d times\n", n))
	}
	if len(p.Tags) > 0 {
		keys := make([]string, 0, len(p.Tags))
		for k := range p.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+p.Tags[k])
		}
		sb.WriteString(fmt.Sprintf("🔖 %s\n", strings.Join(pairs, " ")))
	}
	return sb.String()
}

func (p *Packet) title() string {
	if p.Message != "" {
		return p.Message
	}
	if len(p.Exceptions) > 0 {
		return p.Exceptions[0].Type + ": " + p.Exceptions[0].Value
	}
	return "<no message>"
}

// culprit is the function of the first non-runtime frame of the innermost
// exception that has frames.
func culprit(exceptions []Exception, st *stacktrace.Stacktrace) string {
	for i := len(exceptions) - 1; i >= 0; i-- {
		if fn := firstCaller(exceptions[i].Stacktrace); fn != "" {
			return fn
		}
	}
	return firstCaller(st)
}

// firstCaller skips the panic machinery at the top of recovered stacks.
func firstCaller(st *stacktrace.Stacktrace) string {
	if st == nil || len(st.Frames) == 0 {
		return ""
	}
	for _, f := range st.Frames {
		if f.Module != "runtime" {
			return f.Function
		}
	}
	return st.Frames[0].Function
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/stacktrace"
	"github.com/armorclaw/raven/pkg/store"
)

// renderer prints command results as plain text, styled text or JSON.
type renderer struct {
	out    io.Writer
	stdin  io.Reader
	styled bool
	json   bool

	title  lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	levels map[event.Level]lipgloss.Style
}

func newRenderer(out io.Writer, styled, jsonOutput bool) *renderer {
	r := &renderer{
		out:    out,
		stdin:  os.Stdin,
		styled: styled,
		json:   jsonOutput,
		title:  lipgloss.NewStyle().Bold(true),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		levels: map[event.Level]lipgloss.Style{
			event.LevelDebug:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			event.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
			event.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			event.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
			event.LevelFatal:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		},
	}
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *renderer) level(l event.Level) string {
	text := fmt.Sprintf("%-7s", l)
	if s, ok := r.levels[l]; ok {
		return r.style(s, text)
	}
	return text
}

func (r *renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) message(msg string) error {
	if r.json {
		return r.writeJSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(r.out, msg)
	return err
}

func (r *renderer) events(events []store.Event) error {
	if r.json {
		if events == nil {
			events = []store.Event{}
		}
		return r.writeJSON(events)
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(r.out, "No events")
		return err
	}

	for _, ev := range events {
		status := ""
		if ev.Resolved {
			status = r.style(r.muted, " (resolved)")
		}
		fmt.Fprintf(r.out, "%s %s %s x%d%s\n",
			r.style(r.muted, ev.EventID),
			r.level(ev.Level),
			r.style(r.title, firstLine(ev.Message)),
			ev.Occurrences,
			status,
		)
		if ev.Culprit != "" {
			fmt.Fprintf(r.out, "    %s %s\n", r.style(r.label, "at"), ev.Culprit)
		}
	}
	return nil
}

func (r *renderer) event(ev *store.Event) error {
	if r.json {
		return r.writeJSON(ev)
	}

	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(r.out, "%s %s\n", r.style(r.label, fmt.Sprintf("%-12s", label+":")), value)
		}
	}

	fmt.Fprintln(r.out, r.style(r.title, firstLine(ev.Message)))
	row("Event", ev.EventID)
	row("Latest", ev.LastEventID)
	row("Level", string(ev.Level))
	row("Culprit", ev.Culprit)
	row("Occurrences", fmt.Sprint(ev.Occurrences))
	row("First seen", ev.FirstSeen.Format(time.RFC3339))
	row("Last seen", ev.LastSeen.Format(time.RFC3339))
	if ev.Resolved {
		resolved := ev.ResolvedBy
		if ev.ResolvedAt != nil {
			resolved += " at " + ev.ResolvedAt.Format(time.RFC3339)
		}
		row("Resolved", strings.TrimSpace(resolved))
	}

	p := ev.Packet
	if p == nil {
		return nil
	}
	if p.Request != nil {
		row("Request", strings.TrimSpace(p.Request.Method+" "+p.Request.URL))
	}
	if p.User != nil {
		row("User", strings.TrimSpace(p.User.Username+" "+p.User.IPAddress))
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
		row("Tags", strings.Join(pairs, " "))
	}

	for _, ex := range p.Exceptions {
		fmt.Fprintf(r.out, "\n%s: %s\n", r.style(r.title, ex.Type), ex.Value)
		if ex.Stacktrace != nil {
			fmt.Fprint(r.out, r.style(r.muted, ex.Stacktrace.String()))
		}
	}
	if p.Stacktrace != nil && len(p.Exceptions) == 0 {
		fmt.Fprintln(r.out)
		fmt.Fprint(r.out, r.style(r.muted, p.Stacktrace.String()))
	}
	return nil
}

func (r *renderer) stats(stats store.Stats) error {
	if r.json {
		return r.writeJSON(stats)
	}

	fmt.Fprintf(r.out, "%s %d\n", r.style(r.label, "Events:     "), stats.TotalEvents)
	fmt.Fprintf(r.out, "%s %d\n", r.style(r.label, "Unresolved: "), stats.UnresolvedEvents)
	fmt.Fprintf(r.out, "%s %d\n", r.style(r.label, "Occurrences:"), stats.TotalOccurrences)

	levels := []event.Level{event.LevelFatal, event.LevelError, event.LevelWarning, event.LevelInfo, event.LevelDebug}
	for _, l := range levels {
		if n := stats.ByLevel[l]; n > 0 {
			fmt.Fprintf(r.out, "  %s %d\n", r.level(l), n)
		}
	}
	return nil
}

// frames always prints JSON; it is meant for piping.
func (r *renderer) frames(frames []stacktrace.Frame) error {
	return r.writeJSON(frames)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

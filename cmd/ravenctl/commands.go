package main

import (
	"context"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"

	"github.com/armorclaw/raven/pkg/client"
	"github.com/armorclaw/raven/pkg/config"
	"github.com/armorclaw/raven/pkg/event"
	"github.com/armorclaw/raven/pkg/logger"
	"github.com/armorclaw/raven/pkg/stacktrace"
	"github.com/armorclaw/raven/pkg/store"
)

func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	s, err := store.Open(store.Config{
		Path:          cfg.Store.Path,
		RetentionDays: cfg.Store.RetentionDays,
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func dispatchStore(ctx context.Context, cli cliConfig, s *store.Store, r *renderer) error {
	switch cli.command {
	case "list":
		return cmdList(ctx, cli, s, r)
	case "stats":
		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		return r.stats(stats)
	case "cleanup":
		removed, err := s.Cleanup(ctx)
		if err != nil {
			return err
		}
		return r.message(fmt.Sprintf("Removed %d expired event(s)", removed))
	}

	id, err := eventIDArg(cli)
	if err != nil {
		return err
	}

	switch cli.command {
	case "show":
		ev, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return r.event(ev)
	case "resolve":
		by := cli.resolvedBy
		if by == "" {
			by = os.Getenv("USER")
		}
		if err := s.Resolve(ctx, id, by); err != nil {
			return err
		}
		return r.message("Resolved " + id)
	case "unresolve":
		if err := s.Unresolve(ctx, id); err != nil {
			return err
		}
		return r.message("Reopened " + id)
	case "delete":
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		return r.message("Deleted " + id)
	}
	return fmt.Errorf("unknown command %q", cli.command)
}

func eventIDArg(cli cliConfig) (string, error) {
	if len(cli.args) != 1 || cli.args[0] == "" {
		return "", fmt.Errorf("usage: ravenctl %s <event-id>", cli.command)
	}
	return cli.args[0], nil
}

func cmdList(ctx context.Context, cli cliConfig, s *store.Store, r *renderer) error {
	q := store.Query{
		Limit:   cli.limit,
		OrderBy: cli.order,
	}
	if cli.level != "" {
		level, err := event.ParseLevel(cli.level)
		if err != nil {
			return err
		}
		q.Level = level
	}
	if !cli.all {
		unresolved := false
		q.Resolved = &unresolved
	}

	events, err := s.Query(ctx, q)
	if err != nil {
		return err
	}
	return r.events(events)
}

// cmdParse reads a trace from a file, or stdin for "-", and prints the
// frames the text parser recovers.
func cmdParse(cli cliConfig, r *renderer) error {
	if len(cli.args) != 1 {
		return fmt.Errorf("usage: ravenctl parse <file|->")
	}

	var in io.Reader = r.stdin
	if cli.args[0] != "-" {
		f, err := os.Open(cli.args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	frames := stacktrace.NewTextParser().Parse(string(data))
	return r.frames(frames)
}

// cmdTest captures a synthetic error through a client built from the
// configuration, with the logger transport always enabled.
func cmdTest(ctx context.Context, cfg *config.Config, r *renderer) error {
	opts := cfg.ToClientOptions()
	opts.Logger = logger.Global()
	opts.LogEvents = true
	opts.DisableSampling = true

	c, err := client.New(opts)
	if err != nil {
		return err
	}

	err = pkgerrors.Wrap(pkgerrors.New("this is a test event"), "ravenctl test")
	id := c.CaptureError(ctx, err, client.WithLevel(event.LevelInfo), client.WithTag("source", "ravenctl"))

	failures := c.Metrics().Snapshot()["transport_failures"]
	if cerr := c.Close(); cerr != nil {
		logger.Warn("failed to close transports", "error", cerr)
	}

	if id == "" {
		return fmt.Errorf("test event was not captured")
	}
	if failures > 0 {
		return fmt.Errorf("test event %s failed on %d transport(s)", id, failures)
	}
	return r.message("Sent test event " + id)
}

// ravenctl inspects the local raven event store and exercises the
// configured delivery pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/armorclaw/raven/pkg/config"
	"github.com/armorclaw/raven/pkg/logger"
	"github.com/armorclaw/raven/pkg/store"
)

var (
	buildTime = "unknown"
)

type cliConfig struct {
	configPath string
	dbPath     string
	logLevel   string
	jsonOutput bool
	noColor    bool
	version    bool
	help       bool

	// list
	level string
	limit int
	all   bool
	order string

	// resolve
	resolvedBy string

	command string
	args    []string
}

func parseFlags(fs *flag.FlagSet, argv []string) (cliConfig, error) {
	cfg := cliConfig{}

	fs.StringVar(&cfg.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&cfg.dbPath, "db", "", "Path to event store database (overrides config)")
	fs.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.jsonOutput, "json", false, "Print JSON instead of formatted output")
	fs.BoolVar(&cfg.noColor, "no-color", false, "Disable styled output")
	fs.BoolVar(&cfg.version, "version", false, "Print version and exit")
	fs.BoolVar(&cfg.help, "help", false, "Show help message")

	fs.StringVar(&cfg.level, "level", "", "Only events of this level (list command)")
	fs.IntVar(&cfg.limit, "limit", 20, "Maximum events to show (list command)")
	fs.BoolVar(&cfg.all, "all", false, "Include resolved events (list command)")
	fs.StringVar(&cfg.order, "order", "last_seen", "Sort by first_seen, last_seen or occurrences (list command)")
	fs.StringVar(&cfg.resolvedBy, "by", "", "Who resolved the event (resolve command)")

	if err := fs.Parse(argv); err != nil {
		return cfg, err
	}

	args := fs.Args()
	if len(args) > 0 {
		cfg.command = args[0]
		cfg.args = args[1:]
	}
	if cfg.version {
		cfg.command = "version"
	}
	if cfg.help {
		cfg.command = "help"
	}
	return cfg, nil
}

func main() {
	fs := flag.NewFlagSet("ravenctl", flag.ExitOnError)
	cli, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	styled := !cli.noColor && !cli.jsonOutput && term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(ctx, cli, os.Stdout, styled); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cli cliConfig, out io.Writer, styled bool) error {
	r := newRenderer(out, styled, cli.jsonOutput)

	switch cli.command {
	case "", "help":
		printHelp(out)
		return nil
	case "version":
		printVersion(out)
		return nil
	case "parse":
		return cmdParse(cli, r)
	}

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	if cli.logLevel != "" {
		cfg.Logging.Level = cli.logLevel
	}
	if cli.dbPath != "" {
		cfg.Store.Path = cli.dbPath
	}
	setupLogging(cfg)

	switch cli.command {
	case "test":
		return cmdTest(ctx, cfg, r)
	case "list", "show", "resolve", "unresolve", "delete", "stats", "cleanup":
		return withStore(cfg, func(s *store.Store) error {
			return dispatchStore(ctx, cli, s, r)
		})
	}
	return fmt.Errorf("unknown command %q (see 'ravenctl help')", cli.command)
}

func setupLogging(cfg *config.Config) {
	lc := cfg.ToLoggerConfig("ravenctl")
	l, err := logger.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
		return
	}
	logger.SetGlobal(l)
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "ravenctl v%s\n", logger.Version)
	fmt.Fprintf(out, "Build time: %s\n", buildTime)
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `USAGE:
    ravenctl [flags] <command> [args]

COMMANDS:
    list                 List stored events
    show <event-id>      Show one event with its frames
    resolve <event-id>   Mark an event as resolved
    unresolve <event-id> Reopen a resolved event
    delete <event-id>    Delete an event
    stats                Show store statistics
    cleanup              Remove expired resolved events
    parse <file|->       Parse a stack trace and print its frames as JSON
    test                 Send a test event through the configured transports
    version              Show version information
    help                 Show this help message

FLAGS:
    -config string       Path to configuration file
    -db string           Path to event store database (overrides config)
    -json                Print JSON instead of formatted output
    -level string        Only events of this level (list)
    -limit int           Maximum events to show (list, default 20)
    -all                 Include resolved events (list)
    -order string        first_seen, last_seen or occurrences (list)
    -by string           Who resolved the event (resolve)

EXAMPLES:
    # Recent unresolved errors
    ravenctl -level error list

    # Parse a goroutine dump
    go test ./... 2>&1 | ravenctl parse -
`)
}

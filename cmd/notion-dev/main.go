// NotionDev CLI: feature-driven development with Notion documentation
// and Asana tickets.
//
// Usage:
//
//	notion-dev info                 # configuration and connection status
//	notion-dev tickets              # list your open tickets
//	notion-dev work <ticket-id>     # start a ticket, export AI context
//	notion-dev comment <message>    # comment on the active ticket
//	notion-dev done                 # complete the active ticket
//	notion-dev modules              # list documented modules
//	notion-dev features [prefix]    # list documented features
//
// Every command accepts --json for machine-readable output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phumblot-gs/notiondev/internal/cli"
	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("notion-dev v%s\n", server.Version)
		os.Exit(0)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	jsonOut := false
	var positional []string
	for _, arg := range args {
		if arg == "--json" {
			jsonOut = true
			continue
		}
		positional = append(positional, arg)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w\nCreate %s, see 'notion-dev help'", err, config.Path())
	}

	log, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	app, cleanup, err := cli.New(cfg, workDir, log)
	if err != nil {
		return err
	}
	defer cleanup()
	app.JSON = jsonOut

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "info":
		return app.Info(ctx)
	case "tickets":
		return app.Tickets(ctx)
	case "work":
		if len(positional) != 1 {
			return fmt.Errorf("usage: notion-dev work <ticket-id>")
		}
		return app.Work(ctx, positional[0])
	case "comment":
		if len(positional) != 1 {
			return fmt.Errorf("usage: notion-dev comment <message>")
		}
		return app.Comment(ctx, positional[0])
	case "done":
		return app.Done(ctx)
	case "modules":
		return app.Modules(ctx)
	case "features":
		prefix := ""
		if len(positional) > 0 {
			prefix = positional[0]
		}
		return app.Features(ctx, prefix)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// newLogger builds a stderr logger so command output owns stdout.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printUsage() {
	fmt.Fprint(os.Stderr, `notion-dev — feature-driven development with Notion and Asana

Usage:
  notion-dev info                 Configuration and connection status
  notion-dev tickets              List your open tickets
  notion-dev work <ticket-id>     Start a ticket, export AI context to .cursor/
  notion-dev comment <message>    Comment on the active ticket
  notion-dev done                 Complete the active ticket
  notion-dev modules              List documented modules
  notion-dev features [prefix]    List documented features

Flags:
  --json      Machine-readable output
  --version   Print version
`)
}

// NotionDev MCP server.
//
// Usage:
//
//	notion-dev-mcp serve           # local stdio server for one developer
//	notion-dev-mcp serve-remote    # hosted HTTP server behind an OAuth proxy
//
// The local server reads ~/.notion-dev/config.yml; the remote server is
// configured entirely through environment variables (see .env support).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phumblot-gs/notiondev/internal/config"
	"github.com/phumblot-gs/notiondev/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runLocal(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve-remote":
		if err := runRemote(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("notion-dev-mcp v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runLocal() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Logs go to stderr: stdout belongs to the MCP stdio transport.
	log, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	s, cleanup, err := server.NewLocal(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	log.Info("serving MCP over stdio", zap.String("version", server.Version))
	return mcpserver.ServeStdio(s)
}

func runRemote() error {
	cfg := config.LoadRemote()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	httpServer, _, err := server.NewRemote(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving MCP over HTTP",
			zap.String("addr", cfg.ListenAddr),
			zap.String("version", server.Version))
		errCh <- httpServer.Start(cfg.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

const shutdownTimeout = 10 * time.Second

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
	fmt.Fprint(os.Stderr, `notion-dev-mcp — MCP server for NotionDev

Usage:
  notion-dev-mcp serve           Local stdio server (reads ~/.notion-dev/config.yml)
  notion-dev-mcp serve-remote    Hosted HTTP server (configured via environment)

Environment for serve-remote:
  SERVICE_NOTION_TOKEN           Notion integration token
  SERVICE_ASANA_TOKEN            Asana service account token
  ASANA_WORKSPACE_GID            Asana workspace
  ASANA_DEFAULT_PROJECT_GID      Project for tickets created without one
  NOTION_MODULES_DATABASE_ID     Modules database
  NOTION_FEATURES_DATABASE_ID    Features database
  LISTEN_ADDR                    Listen address (default 0.0.0.0:8000)
`)
}

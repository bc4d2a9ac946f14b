package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelocantos/export-sentry-issue/internal/audit"
	"github.com/marcelocantos/export-sentry-issue/internal/cli"
	"github.com/marcelocantos/export-sentry-issue/internal/config"
	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		cli.RunHelp(os.Stderr)
		return 1
	}

	// Load config.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "export-sentry-issue: config: %v\n", err)
		return 1
	}
	cfg.ApplyEnv(os.Getenv)

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Set up audit logger.
	var history *audit.Logger
	if cfg.Audit.Enabled {
		history, err = audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			logger.Warn("export history disabled", "err", err)
			// Continue without audit logging.
			history = nil
		}
	}

	env := &cli.Env{
		Config:   cfg,
		Store:    credentials.NewStore(cfg.Credentials.Path),
		Audit:    history,
		Logger:   logger,
		LogLevel: level,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Getenv:   os.Getenv,
		Version:  version,
	}

	// Set up context with cancellation on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "init":
		return cli.RunInit(ctx, env)
	case "export":
		return cli.RunExport(ctx, env, args)
	case "revoke":
		return cli.RunRevoke(ctx, env)
	case "config":
		return cli.RunConfig(env)
	case "audit":
		auditPath := ""
		if cfg.Audit.Enabled {
			auditPath = cfg.Audit.Path
		}
		return cli.RunAudit(os.Stdout, auditPath, args)
	case "mcp":
		return cli.RunMCP(ctx, env, args)
	case "--help", "-h", "help":
		return cli.RunHelp(os.Stdout)
	case "--help-agent":
		return cli.RunHelpAgent(os.Stdout)
	case "--version":
		fmt.Printf("export-sentry-issue %s\n", version)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "export-sentry-issue: unknown command %q\n", os.Args[1])
		cli.RunHelp(os.Stderr)
		return 1
	}
}

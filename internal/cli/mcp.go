package cli

import (
	"context"
	"errors"
	"flag"
	"net"
	"strconv"

	"github.com/marcelocantos/export-sentry-issue/internal/mcpserver"
)

// RunMCP handles the mcp subcommand: serve the MCP tools over stdio, or
// over streamable HTTP with --http.
func RunMCP(ctx context.Context, env *Env, args []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	useHTTP := fs.Bool("http", false, "serve over streamable HTTP instead of stdio")
	host := fs.String("host", "127.0.0.1", "HTTP listen host")
	port := fs.Int("port", 3001, "HTTP listen port")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	srv := mcpserver.New(mcpserver.Deps{
		Store:     env.Store,
		Audit:     env.Audit,
		Logger:    env.logger(),
		Export:    env.Config.Export,
		NewClient: env.newClient,
		Getenv:    env.getenv,
		Now:       env.now,
	}).MCPServer(env.Version)

	if !*useHTTP {
		if err := mcpserver.ServeStdio(ctx, srv, env.Stdin, env.Stdout); err != nil {
			return env.fail(err)
		}
		return 0
	}

	l, err := net.Listen("tcp", net.JoinHostPort(*host, strconv.Itoa(*port)))
	if err != nil {
		return env.fail(err)
	}
	if err := mcpserver.ServeHTTP(ctx, srv, l, env.logger()); err != nil {
		return env.fail(err)
	}
	return 0
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// EndpointPath is where the HTTP transport serves MCP requests.
const EndpointPath = "/mcp"

const shutdownGrace = 5 * time.Second

// ServeStdio serves srv over a line-delimited JSON-RPC stream until ctx is
// done or in reaches EOF.
func ServeStdio(ctx context.Context, srv *server.MCPServer, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(srv).Listen(ctx, in, out)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)) {
		return nil
	}
	return err
}

// ServeHTTP serves srv with the streamable HTTP transport on l until ctx is
// done, then shuts down gracefully.
func ServeHTTP(ctx context.Context, srv *server.MCPServer, l net.Listener, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, server.NewStreamableHTTPServer(srv, server.WithEndpointPath(EndpointPath)))
	hs := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(l) }()
	logger.Info("mcp http server listening", "addr", l.Addr().String(), "path", EndpointPath)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package mcpserver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
)

const initializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`

func testMCPServer(t *testing.T) *Server {
	t.Helper()
	return New(Deps{Store: credentials.NewStore(filepath.Join(t.TempDir(), "config.json"))})
}

func TestServeHTTP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() { done <- ServeHTTP(ctx, testMCPServer(t).MCPServer("test"), l, logger) }()

	resp, err := http.Post("http://"+l.Addr().String()+EndpointPath, "application/json", strings.NewReader(initializeRequest))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"name":"export-sentry-issue"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeStdio(t *testing.T) {
	in := strings.NewReader(initializeRequest + "\n")
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := ServeStdio(ctx, testMCPServer(t).MCPServer("test"), in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"name":"export-sentry-issue"`)
}

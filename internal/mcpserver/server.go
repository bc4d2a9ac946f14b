// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes credential management and issue export as MCP
// tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcelocantos/export-sentry-issue/internal/audit"
	"github.com/marcelocantos/export-sentry-issue/internal/config"
	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/export"
	"github.com/marcelocantos/export-sentry-issue/internal/issueref"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

const serverName = "export-sentry-issue"

const manualRevokeSteps = "  1. Go to: Settings → Account → API → Auth Tokens\n  2. Find and delete the token"

// Deps are the collaborators the tools use.
type Deps struct {
	Store  *credentials.Store
	Audit  *audit.Logger
	Logger *slog.Logger
	Export config.ExportConfig

	// NewClient builds an API client for a base URL and token.
	NewClient func(baseAPIURL, token string) *sentry.Client
	Getenv    func(string) string
	Now       func() time.Time
}

// Server holds the tool handlers.
type Server struct {
	deps Deps
}

// New returns a Server. Nil Logger, Getenv and Now fall back to the process
// defaults.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewClient == nil {
		deps.NewClient = func(base, token string) *sentry.Client {
			return sentry.NewClient(base, token, sentry.WithLogger(deps.Logger))
		}
	}
	return &Server{deps: deps}
}

// MCPServer returns an MCP server with every tool registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Use view_sentry_issue when the user mentions a Sentry issue URL or issue numbers; "+
			"use export_issues_tool for batch exports. Run initialize_config once to store credentials."),
	)
	srv.AddTools(s.Tools()...)
	return srv
}

// Tools returns the tool definitions and handlers.
func (s *Server) Tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("initialize_config",
				mcp.WithDescription("Verify a Sentry token and save it, with its API base URL, to the local credential file (mode 600)."),
				mcp.WithString("base_url", mcp.Required(),
					mcp.Description("Sentry API base URL (e.g., https://sentry.io/api/0/projects/{org}/{project}/issues/)")),
				mcp.WithString("token", mcp.Required(), mcp.Description("Sentry Auth Token")),
			),
			Handler: s.handleInitializeConfig,
		},
		{
			Tool: mcp.NewTool("view_sentry_issue",
				mcp.WithDescription("View and export Sentry issue(s) with complete error details. "+
					"Use when the user mentions a Sentry issue URL (https://sentry.io/organizations/org/issues/123/), "+
					"\"issue #123\", or a list of issue numbers."),
				mcp.WithString("issue_url_or_id", mcp.Required(),
					mcp.Description("Sentry issue URL(s) or ID(s): '12345', '12345, 67890', or URLs separated by commas or spaces")),
				mcp.WithString("output_file", mcp.Description("Output file name (optional, defaults to sentry_issue(s)_TIMESTAMP.txt)")),
				mcp.WithBoolean("debug", mcp.DefaultBool(false), mcp.Description("Enable debug mode to save raw JSON files")),
			),
			Handler: s.handleViewIssue,
		},
		{
			Tool: mcp.NewTool("export_issues_tool",
				mcp.WithDescription("Export multiple Sentry issues to a plain text file (batch export). "+
					"Falls back to SENTRY_TOKEN and the saved configuration when base_url or token are omitted."),
				mcp.WithString("issue_ids", mcp.Required(), mcp.Description("Comma-separated Issue IDs to export (e.g., '12345,67890,11111')")),
				mcp.WithString("base_url", mcp.Description("Sentry API base URL (optional if already configured)")),
				mcp.WithString("token", mcp.Description("Sentry Auth Token (optional if already configured)")),
				mcp.WithString("output_file", mcp.Description("Output file name (optional, defaults to sentry_issues_TIMESTAMP.txt)")),
				mcp.WithBoolean("debug", mcp.DefaultBool(false), mcp.Description("Enable debug mode to save raw JSON files")),
			),
			Handler: s.handleExportIssues,
		},
		{
			Tool: mcp.NewTool("list_config",
				mcp.WithDescription("Display the saved Sentry configuration with the token masked."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleListConfig,
		},
		{
			Tool: mcp.NewTool("revoke_config",
				mcp.WithDescription("Delete the saved Sentry configuration. The token itself must be revoked manually in Sentry."),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: s.handleRevokeConfig,
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError("❌ " + fmt.Sprintf(format, args...))
}

// loadStored returns the stored credential, or nil when none is saved. A
// file readable by others is refused.
func (s *Server) loadStored() (*credentials.Credential, *mcp.CallToolResult) {
	res, err := s.deps.Store.Load()
	if err != nil {
		return nil, errorResult("Error: %v", err)
	}
	if res.Warning != nil {
		return nil, errorResult("Config file has insecure permissions\nRun: chmod 600 %s", s.deps.Store.Path())
	}
	return res.Credential, nil
}

func (s *Server) handleInitializeConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	baseURL, err := req.RequireString("base_url")
	if err != nil {
		return errorResult("Error: %v", err), nil
	}
	token, err := req.RequireString("token")
	if err != nil {
		return errorResult("Error: %v", err), nil
	}
	apiBase, err := sentry.ParseBaseURL(baseURL)
	if err != nil {
		return errorResult("Error: %v", err), nil
	}

	if err := s.deps.NewClient(apiBase, token).Verify(ctx, baseURL); err != nil {
		switch {
		case sentry.IsUnauthorized(err):
			return errorResult("Error: Invalid token (401 Unauthorized)"), nil
		case sentry.IsForbidden(err):
			return errorResult("Error: Token lacks required permissions (403 Forbidden). Ensure 'event:read' permission is enabled."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("⚠️ Warning: Token verification failed: %v\nConfiguration was NOT saved.", err)), nil
	}

	if err := s.deps.Store.Save(baseURL, token); err != nil {
		return errorResult("Error: %v", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✅ Configuration saved successfully to: %s\nFile permissions: 600 (owner read/write only)",
		s.deps.Store.Path())), nil
}

func (s *Server) handleViewIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := req.RequireString("issue_url_or_id")
	if err != nil {
		return errorResult("Error: %v", err), nil
	}
	parsed := issueref.Parse(input)

	var baseURL string
	if parsed.FromURL {
		stored, failure := s.loadStored()
		if failure != nil || stored == nil || stored.BaseURL == "" {
			return errorResult("Cannot extract project info from URL. Please run 'initialize_config' first or provide the full issue ID with configured base_url."), nil
		}
		baseURL = stored.BaseURL
	}

	ids := parsed.IDs()
	if len(ids) == 0 {
		return errorResult("No valid issue IDs or URLs found"), nil
	}

	outputFile := req.GetString("output_file", "")
	if outputFile == "" {
		outputFile = export.DefaultFileName(s.deps.Now(), ids, true)
	}
	return s.doExport(ctx, ids, credentials.Credential{BaseURL: baseURL}, outputFile, req.GetBool("debug", false)), nil
}

func (s *Server) handleExportIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("issue_ids")
	if err != nil {
		return errorResult("Error: %v", err), nil
	}
	explicit := credentials.Credential{
		BaseURL: req.GetString("base_url", ""),
		Token:   req.GetString("token", ""),
	}
	ids := issueref.SplitIDs(raw)
	return s.doExport(ctx, ids, explicit, req.GetString("output_file", ""), req.GetBool("debug", false)), nil
}

func (s *Server) doExport(ctx context.Context, ids []string, explicit credentials.Credential, outputFile string, debug bool) *mcp.CallToolResult {
	layers := []credentials.Credential{explicit, config.EnvCredential(s.deps.Getenv)}
	if explicit.Token == "" || explicit.BaseURL == "" {
		stored, failure := s.loadStored()
		if failure != nil {
			return failure
		}
		if stored != nil {
			layers = append(layers, *stored)
		}
	}

	cred, err := export.ResolveCredential(layers...)
	if err != nil {
		if cred.Token == "" {
			return errorResult("Error: No token provided.\nPlease either:\n" +
				"  1. Use 'initialize_config' tool to save your token\n" +
				"  2. Provide 'token' parameter\n" +
				"  3. Set SENTRY_TOKEN environment variable")
		}
		return errorResult("Error: No base URL provided.\nPlease either:\n" +
			"  1. Use 'initialize_config' tool to save your configuration\n" +
			"  2. Provide 'base_url' parameter")
	}
	if len(ids) == 0 {
		return errorResult("Error: No valid Issue IDs provided")
	}
	apiBase, err := sentry.ParseBaseURL(cred.BaseURL)
	if err != nil {
		return errorResult("Error: %v", err)
	}

	exporter := export.New(s.deps.NewClient(apiBase, cred.Token), export.Options{
		OutputDir: s.deps.Export.OutputDir,
		Debug:     debug,
		Fallback:  s.deps.Export.FallbackPolicy(),
		Logger:    s.deps.Logger,
		Now:       s.deps.Now,
	})
	start := s.deps.Now()
	res, runErr := exporter.Run(ctx, ids, outputFile)
	s.record(apiBase, ids, res, runErr, s.deps.Now().Sub(start))
	if runErr != nil {
		return errorResult("Error: %v", runErr)
	}

	content, err := os.ReadFile(res.OutputPath)
	if err != nil {
		return errorResult("Error: %v", err)
	}

	var b strings.Builder
	b.WriteString("✅ Export completed!\n")
	fmt.Fprintf(&b, "Success: %d\n", res.Succeeded)
	fmt.Fprintf(&b, "Failed: %d\n", res.Failed)
	fmt.Fprintf(&b, "File saved: %s\n\n", export.DisplayPath(res.OutputPath, s.deps.Export.OutputDir, s.deps.Export.HostOutputDir))
	b.WriteString("=== Issue Content ===\n")
	b.Write(content)
	return mcp.NewToolResultText(b.String())
}

func (s *Server) record(apiBase string, ids []string, res *export.Result, runErr error, elapsed time.Duration) {
	run := audit.Run{
		Surface:  audit.SurfaceMCP,
		BaseURL:  apiBase,
		IssueIDs: ids,
		Err:      runErr,
		Duration: elapsed,
	}
	if res != nil {
		run.Succeeded = res.Succeeded
		run.Failed = res.Failed
		run.FailedIDs = res.FailedIDs()
		run.OutputPath = res.OutputPath
	}
	if _, err := s.deps.Audit.Log(run); err != nil {
		s.deps.Logger.Warn("audit log write failed", "err", err)
	}
}

func (s *Server) handleListConfig(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stored, failure := s.loadStored()
	if failure != nil {
		return failure, nil
	}
	if stored == nil {
		return errorResult("No configuration found at %s\nUse 'initialize_config' tool to set up your credentials.", s.deps.Store.Path()), nil
	}
	baseURL := stored.BaseURL
	if baseURL == "" {
		baseURL = "N/A"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Configuration file: %s\nBase URL: %s\nToken: %s",
		s.deps.Store.Path(), baseURL, stored.MaskedToken())), nil
}

func (s *Server) handleRevokeConfig(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	existed, err := s.deps.Store.Delete()
	if err != nil {
		return errorResult("Error: Could not delete configuration file: %v", err), nil
	}
	if !existed {
		return errorResult("No configuration found at %s\nNothing to revoke.", s.deps.Store.Path()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✅ Configuration deleted from: %s\n\n"+
		"⚠️ IMPORTANT: Please manually revoke the token from Sentry:\n%s", s.deps.Store.Path(), manualRevokeSteps)), nil
}

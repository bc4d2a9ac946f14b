package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelocantos/export-sentry-issue/internal/audit"
	"github.com/marcelocantos/export-sentry-issue/internal/config"
	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/export"
	"github.com/marcelocantos/export-sentry-issue/internal/issueref"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// RunExport handles the export subcommand.
func RunExport(ctx context.Context, env *Env, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	ids := fs.String("ids", "", "Issue IDs to export, comma-separated, e.g.: 12345,67890,11111")
	baseURL := fs.String("base-url", "", "Sentry API base URL (optional if already configured)")
	token := fs.String("token", "", "Sentry Auth Token (optional if already configured)")
	output := fs.String("output", "", "Output file name (optional, default: sentry_issues_TIMESTAMP.txt)")
	debug := fs.Bool("debug", false, "Enable debug mode, shows available fields and saves raw JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *ids == "" {
		fmt.Fprintf(env.Stderr, "%s export: --ids is required\n", progName)
		fs.Usage()
		return 2
	}

	layers := []credentials.Credential{
		{BaseURL: *baseURL, Token: *token},
		config.EnvCredential(env.getenv),
	}
	if *token == "" || *baseURL == "" {
		stored, err := env.loadStored()
		if err != nil {
			return env.fail(err)
		}
		if stored != nil {
			layers = append(layers, *stored)
		}
	}
	cred, err := export.ResolveCredential(layers...)
	if err != nil {
		printMissingCredential(env, cred)
		return 1
	}

	issueIDs := issueref.SplitIDs(*ids)
	if len(issueIDs) == 0 {
		fmt.Fprintln(env.Stderr, "Error: No valid Issue IDs provided")
		return 1
	}
	apiBase, err := sentry.ParseBaseURL(cred.BaseURL)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(env.Stdout, "Preparing to export %d issue(s)...\n", len(issueIDs))
	if *debug {
		fmt.Fprintln(env.Stdout, "🔍 Debug mode enabled")
		if env.LogLevel != nil {
			env.LogLevel.Set(slog.LevelDebug)
		}
	}

	exporter := export.New(env.newClient(apiBase, cred.Token), export.Options{
		OutputDir: env.Config.Export.OutputDir,
		Debug:     *debug,
		Fallback:  env.Config.Export.FallbackPolicy(),
		Progress:  env.Stdout,
		Logger:    env.logger(),
		Now:       env.now,
	})
	start := env.now()
	res, runErr := exporter.Run(ctx, issueIDs, *output)
	recordRun(env, apiBase, issueIDs, res, runErr, env.now().Sub(start))
	if runErr != nil {
		return env.fail(runErr)
	}

	res.WriteSummary(env.Stdout, export.DisplayPath(res.OutputPath, env.Config.Export.OutputDir, env.Config.Export.HostOutputDir))
	return 0
}

func printMissingCredential(env *Env, cred credentials.Credential) {
	w := env.Stderr
	if cred.Token == "" {
		fmt.Fprintln(w, "Error: No token provided.")
		fmt.Fprintln(w, "Please either:")
		fmt.Fprintf(w, "  1. Run '%s init' to save your token\n", progName)
		fmt.Fprintln(w, "  2. Use --token parameter")
		fmt.Fprintln(w, "  3. Set SENTRY_TOKEN environment variable")
		return
	}
	fmt.Fprintln(w, "Error: No base URL provided.")
	fmt.Fprintln(w, "Please either:")
	fmt.Fprintf(w, "  1. Run '%s init' to save your configuration\n", progName)
	fmt.Fprintln(w, "  2. Use --base-url parameter")
	fmt.Fprintln(w, "  3. Set SENTRY_BASE_URL environment variable")
}

func recordRun(env *Env, apiBase string, ids []string, res *export.Result, runErr error, elapsed time.Duration) {
	run := audit.Run{
		Surface:  audit.SurfaceCLI,
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
	if _, err := env.Audit.Log(run); err != nil {
		env.logger().Warn("audit log write failed", "err", err)
	}
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// RunInit handles the init subcommand: prompt for a base URL and token,
// verify them against the API, and save them.
func RunInit(ctx context.Context, env *Env) int {
	out := env.Stdout
	p := newPrompter(env.Stdin, out)

	fmt.Fprint(out, "=== Sentry Issue Export Tool - Initialization ===\n\n")

	if _, err := os.Stat(env.Store.Path()); err == nil {
		fmt.Fprintf(out, "⚠️  Configuration already exists at: %s\n", env.Store.Path())
		ok, err := p.confirm("Do you want to overwrite it? (yes/no): ")
		if err != nil {
			return env.fail(err)
		}
		if !ok {
			fmt.Fprintln(out, "Initialization cancelled.")
			return 0
		}
	}

	fmt.Fprintln(out, "\nEnter your Sentry API base URL")
	fmt.Fprintln(out, "Format: https://sentry.io/api/0/projects/{org}/{project}/issues/")
	fmt.Fprintln(out, "Or: https://your-domain.com/api/0/projects/{org}/{project}/issues/")
	baseURL, err := p.line("\nBase URL: ")
	if err != nil {
		return env.fail(err)
	}
	if baseURL == "" {
		fmt.Fprintln(env.Stderr, "Error: Base URL is required")
		return 1
	}
	apiBase, err := sentry.ParseBaseURL(baseURL)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "\nEnter your Sentry Auth Token")
	fmt.Fprintln(out, "(Get it from: Settings → Account → API → Auth Tokens)")
	token, err := p.secret("Token (hidden): ")
	if err != nil {
		return env.fail(err)
	}
	if token == "" {
		fmt.Fprintln(env.Stderr, "Error: Token is required")
		return 1
	}

	fmt.Fprintln(out, "\nVerifying token...")
	if err := env.newClient(apiBase, token).Verify(ctx, baseURL); err != nil {
		fmt.Fprintf(out, "✗ Token verification failed: %s\n", verifyFailure(err))
		ok, err := p.confirm("\nSave anyway? (yes/no): ")
		if err != nil {
			return env.fail(err)
		}
		if !ok {
			fmt.Fprintln(out, "Initialization cancelled.")
			return 1
		}
	} else {
		fmt.Fprintln(out, "✓ Token verified successfully")
	}

	if err := env.Store.Save(baseURL, token); err != nil {
		return env.fail(err)
	}
	fmt.Fprintf(out, "\n✓ Configuration saved to: %s\n", env.Store.Path())
	fmt.Fprintln(out, "  File permissions: 600 (owner read/write only)")
	fmt.Fprintln(out, "\nYou can now use the export command without specifying --token:")
	fmt.Fprintf(out, "  %s export --ids \"12345,67890\"\n", progName)
	return 0
}

func verifyFailure(err error) string {
	switch {
	case sentry.IsUnauthorized(err):
		return "401 Unauthorized - Invalid token"
	case sentry.IsForbidden(err):
		return "403 Forbidden - Token lacks required permissions (event:read)"
	}
	return err.Error()
}

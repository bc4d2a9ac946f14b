package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// RunRevoke handles the revoke subcommand: confirm, attempt API
// revocation, delete the credential file and print the manual steps.
func RunRevoke(ctx context.Context, env *Env) int {
	out := env.Stdout
	fmt.Fprint(out, "=== Revoke Sentry Token ===\n\n")

	res, err := env.Store.Load()
	if err != nil {
		return env.fail(err)
	}
	if res.Credential == nil {
		fmt.Fprintf(env.Stderr, "Error: No configuration found at %s\n", env.Store.Path())
		fmt.Fprintln(env.Stderr, "Nothing to revoke.")
		return 1
	}
	cred := *res.Credential
	printCredential(out, env.Store.Path(), cred)

	ok, err := newPrompter(env.Stdin, out).confirm("\nAre you sure you want to revoke and delete this configuration? (yes/no): ")
	if err != nil {
		return env.fail(err)
	}
	if !ok {
		fmt.Fprintln(out, "Operation cancelled.")
		return 0
	}

	revokeRemote(ctx, env, cred)

	existed, err := env.Store.Delete()
	if err != nil || !existed {
		fmt.Fprintln(env.Stderr, "Error: Could not delete configuration file")
		if err != nil {
			env.logger().Warn("delete credential file", "err", err)
		}
		return 1
	}
	fmt.Fprintf(out, "\n✓ Configuration deleted from: %s\n", env.Store.Path())
	fmt.Fprintln(out, "\nIMPORTANT: Please manually revoke the token from Sentry:")
	fmt.Fprintln(out, "  1. Go to: Settings → Account → API → Auth Tokens")
	fmt.Fprintln(out, "  2. Find and delete the token")
	return 0
}

// revokeRemote asks the API to revoke the token. Sentry never allows it, so
// this only reports why.
func revokeRemote(ctx context.Context, env *Env, cred credentials.Credential) {
	out := env.Stdout
	apiBase, err := sentry.ParseBaseURL(cred.BaseURL)
	if err != nil {
		fmt.Fprintf(out, "Warning: Could not revoke token via API: %v\n", err)
		return
	}
	err = env.newClient(apiBase, cred.Token).RevokeToken(ctx)
	if err == nil {
		return
	}
	// The bare sentinel means the token still lists; anything joined to it
	// is a request failure.
	if err == sentry.ErrManualActionRequired {
		fmt.Fprintln(out, "Note: Automatic token revocation requires the token ID.")
	} else {
		fmt.Fprintf(out, "Error: Unable to revoke token automatically: %v\n", err)
	}
	fmt.Fprintln(out, "Please revoke the token manually from Sentry:")
	fmt.Fprintln(out, "  Settings → Account → API → Auth Tokens")
}

func printCredential(w io.Writer, path string, cred credentials.Credential) {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = "N/A"
	}
	fmt.Fprintf(w, "Configuration file: %s\n", path)
	fmt.Fprintf(w, "Base URL: %s\n", baseURL)
	if cred.Token == "" {
		fmt.Fprintln(w, "Token: N/A")
	} else {
		fmt.Fprintf(w, "Token: %s\n", cred.MaskedToken())
	}
}

// RunConfig handles the config subcommand: show the saved credential with
// the token masked.
func RunConfig(env *Env) int {
	stored, err := env.loadStored()
	if err != nil {
		return env.fail(err)
	}
	if stored == nil {
		fmt.Fprintf(env.Stderr, "No configuration found at %s\n", env.Store.Path())
		fmt.Fprintf(env.Stderr, "Run '%s init' to set up your credentials.\n", progName)
		return 1
	}
	printCredential(env.Stdout, env.Store.Path(), *stored)
	return 0
}

package cli

import (
	_ "embed"
	"fmt"
	"io"
)

//go:embed help_agent.md
var helpAgent string

// RunHelp shows general usage.
func RunHelp(w io.Writer) int {
	printGeneralHelp(w)
	return 0
}

// RunHelpAgent outputs the general help followed by the guide for agents
// driving the MCP tools.
func RunHelpAgent(w io.Writer) int {
	printGeneralHelp(w)
	fmt.Fprintln(w)
	fmt.Fprint(w, helpAgent)
	return 0
}

func printGeneralHelp(w io.Writer) {
	fmt.Fprintf(w, "%s — export Sentry issues to a plain text file\n", progName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintf(w, "  %s init                              save base URL and token\n", progName)
	fmt.Fprintf(w, "  %s export --ids <id,...> [flags]     export issues\n", progName)
	fmt.Fprintln(w, "      --base-url <url>   Sentry API base URL (optional if configured)")
	fmt.Fprintln(w, "      --token <token>    Sentry Auth Token (optional if configured)")
	fmt.Fprintln(w, "      --output <file>    output file (default sentry_issues_TIMESTAMP.txt)")
	fmt.Fprintln(w, "      --debug            show available fields and save raw JSON")
	fmt.Fprintf(w, "  %s config                            show saved configuration\n", progName)
	fmt.Fprintf(w, "  %s revoke                            delete saved configuration\n", progName)
	fmt.Fprintf(w, "  %s audit <verify|show|tail> [n]      export history, last n >= 1\n", progName)
	fmt.Fprintf(w, "  %s mcp [--http] [--host h] [--port p] run the MCP server\n", progName)
	fmt.Fprintf(w, "  %s --help-agent                      MCP tool guide\n", progName)
	fmt.Fprintf(w, "  %s --version                         show version\n", progName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "examples:")
	fmt.Fprintf(w, "  %s export --ids \"12345,67890\"\n", progName)
	fmt.Fprintf(w, "  %s export --base-url \"https://sentry.example.com/api/0/projects/my-org/my-project/issues/\" --ids \"12345\" --token \"your_token\"\n", progName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment: SENTRY_TOKEN, SENTRY_BASE_URL, OUTPUT_DIR, HOST_OUTPUT_DIR, EXPORT_SENTRY_ISSUE_SETTINGS")
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/marcelocantos/export-sentry-issue/internal/audit"
)

const defaultAuditCount = 20

// RunAudit handles the audit subcommand.
func RunAudit(w io.Writer, logPath string, args []string) int {
	if len(args) == 0 {
		fmt.Fprintf(w, "usage: %s audit <verify|show [n]|tail [n]>\n", progName)
		return 1
	}
	if logPath == "" {
		fmt.Fprintf(w, "%s audit: export history is disabled\n", progName)
		return 1
	}

	switch args[0] {
	case "verify":
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		if err := audit.Verify(logPath); err != nil {
			fmt.Fprintf(w, "audit verification FAILED: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, "audit log integrity verified")
		return 0

	case "show", "tail":
		n := defaultAuditCount
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				fmt.Fprintf(w, "%s audit: invalid count %q\n", progName, args[1])
				return 1
			}
			n = v
		}
		entries, err := audit.Tail(logPath, n)
		if err != nil {
			fmt.Fprintf(w, "%s audit: %v\n", progName, err)
			return 1
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "no audit entries")
			return 0
		}
		for _, e := range entries {
			if args[0] == "show" {
				fmt.Fprintln(w, summaryLine(e))
				continue
			}
			data, _ := json.MarshalIndent(e, "", "  ")
			fmt.Fprintf(w, "%s\n", data)
		}
		return 0

	default:
		fmt.Fprintf(w, "%s audit: unknown subcommand %q\n", progName, args[0])
		return 1
	}
}

// summaryLine renders one entry as
// "#3 2024-05-01T12:30:00Z cli 2 ok 1 failed [101,102,103] -> /out/r.txt".
func summaryLine(e audit.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s %s %d ok %d failed [%s]",
		e.Seq, e.Time.Format(time.RFC3339), e.Surface, e.Succeeded, e.Failed, strings.Join(e.IssueIDs, ","))
	if e.OutputPath != "" {
		fmt.Fprintf(&b, " -> %s", e.OutputPath)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error: %s", e.Error)
	}
	return b.String()
}

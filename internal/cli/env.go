package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/marcelocantos/export-sentry-issue/internal/audit"
	"github.com/marcelocantos/export-sentry-issue/internal/config"
	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

const progName = "export-sentry-issue"

// Env carries everything a subcommand needs. main builds one per process;
// tests build their own with buffers and temp paths.
type Env struct {
	Config *config.Config
	Store  *credentials.Store
	Audit  *audit.Logger // nil disables the export history
	Logger *slog.Logger

	// LogLevel, when set, is lowered to debug by export --debug.
	LogLevel *slog.LevelVar

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// HTTPClient overrides the API client's transport.
	HTTPClient *http.Client
	Now        func() time.Time
	Version    string
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Env) getenv(key string) string {
	if e.Getenv != nil {
		return e.Getenv(key)
	}
	return os.Getenv(key)
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) newClient(baseAPIURL, token string) *sentry.Client {
	opts := []sentry.Option{
		sentry.WithTimeout(e.Config.HTTP.TimeoutDuration()),
		sentry.WithUserAgent(e.Config.HTTP.UserAgent),
		sentry.WithLogger(e.logger()),
	}
	if e.HTTPClient != nil {
		opts = append(opts, sentry.WithHTTPClient(e.HTTPClient))
	}
	return sentry.NewClient(baseAPIURL, token, opts...)
}

// fail prints err in the program's standard error form and returns exit
// status 1.
func (e *Env) fail(err error) int {
	fmt.Fprintf(e.Stderr, "%s: %v\n", progName, err)
	return 1
}

// loadStored returns the stored credential, or nil if none is saved. An
// insecure file is used after printing a warning.
func (e *Env) loadStored() (*credentials.Credential, error) {
	res, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	if res.Warning != nil {
		fmt.Fprintln(e.Stderr, "⚠️  Warning: Config file has insecure permissions!")
		fmt.Fprintf(e.Stderr, "   Please run: chmod 600 %s\n", e.Store.Path())
	}
	return res.Credential, nil
}

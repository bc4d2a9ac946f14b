// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package export drives a batch export: it fetches each issue and its
// latest event, formats them, and appends the reports to one output file.
// A failing issue is recorded inline and does not stop the batch.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/marcelocantos/export-sentry-issue/internal/report"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// IssueFetcher is the subset of the Sentry client an export needs.
type IssueFetcher interface {
	FetchIssue(ctx context.Context, id string) (*sentry.Issue, error)
	ResolveEvent(ctx context.Context, id string, policy sentry.FallbackPolicy) (*sentry.Event, sentry.EventSource, error)
}

// Options configures an Exporter. The zero value exports to the current
// directory without debug output or progress.
type Options struct {
	// OutputDir anchors relative output paths. Empty means the working
	// directory.
	OutputDir string
	// Debug adds the debug block to reports and writes each event's raw
	// JSON next to the output file.
	Debug    bool
	Fallback sentry.FallbackPolicy
	// Progress receives one line per issue. Nil discards it.
	Progress io.Writer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Failure records one issue that could not be exported.
type Failure struct {
	IssueID string
	Err     error
}

// Result summarises a finished export.
type Result struct {
	Succeeded  int
	Failed     int
	OutputPath string
	Failures   []Failure
}

// Exporter runs exports against one client.
type Exporter struct {
	client IssueFetcher
	opts   Options
}

// New returns an Exporter.
func New(client IssueFetcher, opts Options) *Exporter {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{client: client, opts: opts}
}

// Run exports ids, in order, to outputPath. An empty outputPath selects
// DefaultFileName. The returned error covers only failures that stop the
// whole batch: the output file cannot be written or ctx is done. Per-issue
// failures are counted in the Result.
func (e *Exporter) Run(ctx context.Context, ids []string, outputPath string) (*Result, error) {
	if outputPath == "" {
		outputPath = DefaultFileName(e.opts.Now(), ids, false)
	}
	path, err := e.ResolvePath(outputPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	res := &Result{OutputPath: path}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			_ = w.Flush()
			return res, err
		}
		fmt.Fprintf(e.opts.Progress, "Processing %d/%d: Issue ID %s\n", i+1, len(ids), id)

		text, err := e.exportOne(ctx, id, filepath.Dir(path))
		if err != nil {
			msg := fmt.Sprintf("Error processing Issue %s: %v", id, err)
			fmt.Fprintf(e.opts.Progress, "  ✗ %s\n", msg)
			fmt.Fprintf(w, "\nError: %s\n\n", msg)
			e.opts.Logger.Warn("issue export failed", "issue", id, "err", err)
			res.Failed++
			res.Failures = append(res.Failures, Failure{IssueID: id, Err: err})
			continue
		}
		w.WriteString(text)
		w.WriteString("\n\n" + report.Rule + "\n\n")
		res.Succeeded++
	}

	if err := w.Flush(); err != nil {
		return res, fmt.Errorf("write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("close output file: %w", err)
	}
	return res, nil
}

func (e *Exporter) exportOne(ctx context.Context, id, dir string) (string, error) {
	issue, err := e.client.FetchIssue(ctx, id)
	if err != nil {
		return "", err
	}
	event, source, err := e.client.ResolveEvent(ctx, id, e.opts.Fallback)
	if err != nil {
		return "", err
	}
	e.opts.Logger.Debug("event resolved", "issue", id, "source", source)

	if e.opts.Debug && event != nil {
		name, err := writeDebugJSON(dir, id, event.Raw)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(e.opts.Progress, "  Debug JSON saved: %s\n", name)
	}
	return report.Format(issue, event, e.opts.Debug), nil
}

// writeDebugJSON saves the event body, indented, as debug_issue_<id>.json.
func writeDebugJSON(dir, id string, raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent debug JSON: %w", err)
	}
	buf.WriteByte('\n')
	name := filepath.Join(dir, "debug_issue_"+filepath.Base(id)+".json")
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write debug JSON: %w", err)
	}
	return name, nil
}

// ResolvePath makes p absolute, anchoring relative paths at OutputDir.
func (e *Exporter) ResolvePath(p string) (string, error) {
	if !filepath.IsAbs(p) && e.opts.OutputDir != "" {
		p = filepath.Join(e.opts.OutputDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return abs, nil
}

// FailedIDs returns the IDs of failed issues, in order.
func (r *Result) FailedIDs() []string {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.IssueID
	}
	return ids
}

// WriteSummary prints the end-of-run block shown by the CLI.
func (r *Result) WriteSummary(w io.Writer, displayPath string) {
	fmt.Fprintf(w, "\n%s\n", report.Rule)
	fmt.Fprintln(w, "Export completed!")
	fmt.Fprintf(w, "Success: %d\n", r.Succeeded)
	fmt.Fprintf(w, "Failed: %d\n", r.Failed)
	fmt.Fprintf(w, "Output file: %s\n", displayPath)
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
	"github.com/marcelocantos/export-sentry-issue/internal/report"
	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

type fakeFetcher struct {
	issues map[string]*sentry.Issue
	events map[string]*sentry.Event
	calls  []string
	cancel context.CancelFunc
}

var errNotFound = &sentry.HTTPError{StatusCode: 404, URL: "https://sentry.test/api/0/issues/B/"}

func (f *fakeFetcher) FetchIssue(_ context.Context, id string) (*sentry.Issue, error) {
	f.calls = append(f.calls, id)
	if f.cancel != nil {
		f.cancel()
	}
	issue, ok := f.issues[id]
	if !ok {
		return nil, errNotFound
	}
	return issue, nil
}

func (f *fakeFetcher) ResolveEvent(_ context.Context, id string, _ sentry.FallbackPolicy) (*sentry.Event, sentry.EventSource, error) {
	if ev, ok := f.events[id]; ok {
		return ev, sentry.SourceLatest, nil
	}
	return nil, sentry.SourceNone, nil
}

func mustEvent(t *testing.T, s string) *sentry.Event {
	t.Helper()
	var e sentry.Event
	require.NoError(t, json.Unmarshal([]byte(s), &e))
	return &e
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixedNow() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func TestRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		issues: map[string]*sentry.Issue{
			"A": {ID: "A", Title: "first"},
			"C": {ID: "C", Title: "third"},
		},
		events: map[string]*sentry.Event{
			"A": mustEvent(t, `{"eventID":"ea"}`),
		},
	}
	var progress bytes.Buffer
	ex := New(fetcher, Options{OutputDir: dir, Progress: &progress, Logger: quiet(), Now: fixedNow})

	res, err := ex.Run(context.Background(), []string{"A", "B", "C"}, "out.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, filepath.Join(dir, "out.txt"), res.OutputPath)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "B", res.Failures[0].IssueID)
	assert.True(t, sentry.IsNotFound(res.Failures[0].Err))

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	content := string(data)

	sep := "\n\n" + report.Rule + "\n\n"
	want := report.Format(fetcher.issues["A"], fetcher.events["A"], false) + sep +
		"\nError: Error processing Issue B: " + errNotFound.Error() + "\n\n" +
		report.Format(fetcher.issues["C"], nil, false) + sep
	assert.Equal(t, want, content)

	assert.Equal(t, strings.Join([]string{
		"Processing 1/3: Issue ID A",
		"Processing 2/3: Issue ID B",
		"  ✗ Error processing Issue B: " + errNotFound.Error(),
		"Processing 3/3: Issue ID C",
		"",
	}, "\n"), progress.String())
}

func TestRunDefaultFileName(t *testing.T) {
	dir := t.TempDir()
	ex := New(&fakeFetcher{}, Options{OutputDir: dir, Logger: quiet(), Now: fixedNow})

	res, err := ex.Run(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sentry_issues_20240506_070809.txt"), res.OutputPath)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRunAbsoluteOutputIgnoresOutputDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "abs.txt")
	ex := New(&fakeFetcher{}, Options{OutputDir: t.TempDir(), Logger: quiet()})
	res, err := ex.Run(context.Background(), nil, target)
	require.NoError(t, err)
	assert.Equal(t, target, res.OutputPath)
}

func TestRunDebugWritesRawEvent(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		issues: map[string]*sentry.Issue{"42": {ID: "42"}},
		events: map[string]*sentry.Event{"42": mustEvent(t, `{"eventID":"e","zeta":1,"alpha":[1,2]}`)},
	}
	var progress bytes.Buffer
	ex := New(fetcher, Options{OutputDir: dir, Debug: true, Progress: &progress, Logger: quiet()})

	res, err := ex.Run(context.Background(), []string{"42"}, "r.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	debugPath := filepath.Join(dir, "debug_issue_42.json")
	data, err := os.ReadFile(debugPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"eventID\": \"e\",\n  \"zeta\": 1,\n  \"alpha\": [\n    1,\n    2\n  ]\n}\n", string(data))
	assert.Contains(t, progress.String(), "  Debug JSON saved: "+debugPath+"\n")

	out, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "【DEBUG: Available Fields】\nEvent top-level fields: eventID, zeta, alpha\n")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &fakeFetcher{
		issues: map[string]*sentry.Issue{"1": {ID: "1"}, "2": {ID: "2"}},
		cancel: cancel,
	}
	ex := New(fetcher, Options{OutputDir: t.TempDir(), Logger: quiet()})

	res, err := ex.Run(ctx, []string{"1", "2"}, "c.txt")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1"}, fetcher.calls)
	assert.Equal(t, 1, res.Succeeded)
}

func TestRunUnwritableOutput(t *testing.T) {
	ex := New(&fakeFetcher{}, Options{OutputDir: filepath.Join(t.TempDir(), "missing"), Logger: quiet()})
	_, err := ex.Run(context.Background(), []string{"1"}, "x.txt")
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	(&Result{Succeeded: 2, Failed: 1}).WriteSummary(&buf, "/host/out.txt")
	assert.Equal(t, "\n"+report.Rule+"\nExport completed!\nSuccess: 2\nFailed: 1\nOutput file: /host/out.txt\n", buf.String())
}

func TestDefaultFileName(t *testing.T) {
	now := fixedNow()
	tests := []struct {
		name   string
		ids    []string
		single bool
		want   string
	}{
		{name: "batch", ids: []string{"1", "2"}, want: "sentry_issues_20240506_070809.txt"},
		{name: "single id without single form", ids: []string{"1"}, want: "sentry_issues_20240506_070809.txt"},
		{name: "single form", ids: []string{"123"}, single: true, want: "sentry_issue_123_20240506_070809.txt"},
		{name: "single form many ids", ids: []string{"1", "2"}, single: true, want: "sentry_issues_20240506_070809.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultFileName(now, tt.ids, tt.single))
		})
	}
}

func TestDisplayPath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		outputDir string
		hostDir   string
		want      string
	}{
		{name: "remapped", path: "/app/out/r.txt", outputDir: "/app/out", hostDir: "/Users/me/exports", want: "/Users/me/exports/r.txt"},
		{name: "nested", path: "/app/out/a/b.txt", outputDir: "/app/out/", hostDir: "/h", want: "/h/a/b.txt"},
		{name: "no host dir", path: "/app/out/r.txt", outputDir: "/app/out", want: "/app/out/r.txt"},
		{name: "no output dir", path: "/app/out/r.txt", hostDir: "/h", want: "/app/out/r.txt"},
		{name: "outside output dir", path: "/tmp/r.txt", outputDir: "/app/out", hostDir: "/h", want: "/tmp/r.txt"},
		{name: "sibling prefix", path: "/app/output/r.txt", outputDir: "/app/out", hostDir: "/h", want: "/app/output/r.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayPath(tt.path, tt.outputDir, tt.hostDir))
		})
	}
}

func TestResolveCredential(t *testing.T) {
	flags := credentials.Credential{Token: "flag-token"}
	env := credentials.Credential{Token: "env-token", BaseURL: "https://env/api/0"}
	file := credentials.Credential{Token: "file-token", BaseURL: "https://file/api/0"}

	got, err := ResolveCredential(flags, env, file)
	require.NoError(t, err)
	assert.Equal(t, credentials.Credential{Token: "flag-token", BaseURL: "https://env/api/0"}, got)

	got, err = ResolveCredential(credentials.Credential{}, credentials.Credential{}, file)
	require.NoError(t, err)
	assert.Equal(t, file, got)

	_, err = ResolveCredential(credentials.Credential{BaseURL: "https://x/api/0"})
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "token")

	_, err = ResolveCredential(credentials.Credential{Token: "t"})
	require.True(t, errors.Is(err, ErrMissingCredential))
	assert.Contains(t, err.Error(), "base URL")
}

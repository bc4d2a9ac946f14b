// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

func decode[T any](t *testing.T, s string) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return &v
}

const fullIssue = `{"id":"101","title":"ZeroDivisionError: division by zero","status":"unresolved",
	"level":"error","count":"3","firstSeen":"2024-05-01T10:00:00Z","lastSeen":"2024-05-02T11:00:00Z",
	"permalink":"https://sentry.io/organizations/acme/issues/101/",
	"metadata":{"type":"ZeroDivisionError","value":"division by zero"}}`

const fullEvent = `{
  "eventID": "e1",
  "dateCreated": "2024-05-02T11:00:00Z",
  "user": {"id": "u1", "email": "u@example.com", "ip_address": "10.0.0.1"},
  "request": {
    "url": "https://app.example.com/calc",
    "method": "GET",
    "query_string": "a=1",
    "headers": [["Host", "app.example.com"], ["Authorization", "Bearer secret"], ["Cookie", "sid=1"], ["Set-Cookie", "x=y"], ["X-Trace", "t1"]]
  },
  "entries": [
    {"type": "breadcrumbs", "data": {"values": [
      {"timestamp": "2024-05-02T10:59:59Z", "category": "query", "message": "SELECT 1", "data": {"query": "SELECT 1", "duration": 12, "rows": 1}},
      {"type": "http", "level": "warning"}
    ]}},
    {"type": "spans", "data": [
      {"span_id": "sp1", "op": "db", "status": "ok", "start_timestamp": 100.0, "timestamp": 100.0125,
       "exclusive_time": 5.5, "description": "SELECT * FROM t", "parent_span_id": "root", "data": {"db.system": "postgresql"}}
    ]},
    {"type": "exception", "data": {"values": [
      {"type": "ZeroDivisionError", "value": "division by zero", "mechanism": {"type": "generic", "handled": false},
       "stacktrace": {"frames": [
         {"filename": "main.py", "function": "main", "lineNo": 3, "inApp": true},
         {"filename": "calc.py", "function": "divide", "lineNo": 10, "inApp": true, "vars": {"a": 1, "b": 0},
          "context": [[9, "def divide(a, b):"], [10, "    return a / b"]]}
       ]}}
    ]}}
  ],
  "tags": [{"key": "env", "value": "prod"}],
  "contexts": {"runtime": {"name": "CPython", "version": "3.12.1"}, "device": {"family": "x"},
               "app": {"type": "app", "app_name": "calc", "start": null}, "flag": true},
  "extra": {"note": "hi"},
  "sdk": {"name": "sentry.python", "version": "2.1.0"}
}`

var issueHeader = []string{
	Rule,
	"Issue ID: 101",
	"Title: ZeroDivisionError: division by zero",
	"Status: unresolved",
	"Level: error",
	"Count: 3",
	"First Seen: 2024-05-01T10:00:00Z",
	"Last Seen: 2024-05-02T11:00:00Z",
	"Permalink: https://sentry.io/organizations/acme/issues/101/",
	Rule,
	"",
	"【Error Message】",
	"division by zero",
	"Type: ZeroDivisionError",
	"",
}

func lines(parts ...[]string) string {
	var all []string
	for _, p := range parts {
		all = append(all, p...)
	}
	return strings.Join(all, "\n")
}

func TestFormatFullEvent(t *testing.T) {
	issue := decode[sentry.Issue](t, fullIssue)
	event := decode[sentry.Event](t, fullEvent)

	want := lines(issueHeader, []string{
		"【Event Information】",
		"Event ID: e1",
		"Occurred at: 2024-05-02T11:00:00Z",
		"",
		"【User Information】",
		"  ID: u1",
		"  Email: u@example.com",
		"  IP: 10.0.0.1",
		"",
		"【Request Information】",
		"  URL: https://app.example.com/calc",
		"  Method: GET",
		"  Query String: a=1",
		"  Headers:",
		"    Host: app.example.com",
		"    X-Trace: t1",
		"",
		"【Breadcrumbs】",
		"  [2024-05-02T10:59:59Z] [info] [query] default",
		"    Message: SELECT 1",
		"    Query: SELECT 1",
		"    Duration: 12ms",
		"    rows: 1",
		"",
		"  [N/A] [warning] [N/A] http",
		"",
		"【Spans (Performance Traces)】",
		"  Span ID: sp1",
		"    Operation: db",
		"    Status: ok",
		"    Duration: 12.500ms",
		"    Exclusive Time: 5.500ms",
		"    Description: SELECT * FROM t",
		"    Parent Span: root",
		"    Data:",
		"      db.system: postgresql",
		"",
		"【Stack Trace】",
		"\nException Type: ZeroDivisionError",
		"Exception Message: division by zero",
		"Mechanism: generic",
		"\nCall Stack:",
		"  [APP] File: calc.py:10",
		"  Function: divide",
		"  Variables:",
		"    a = 1",
		"    b = 0",
		"  Code:",
		"      9: def divide(a, b):",
		"  >>> 10:     return a / b",
		"",
		"  [APP] File: main.py:3",
		"  Function: main",
		"",
		"【Tags】",
		"  env: prod",
		"",
		"【Context Information】",
		"  Runtime: CPython 3.12.1",
		"  Device: N/A",
		"  app:",
		"    app_name: calc",
		"    start: null",
		"",
		"【Extra Information】",
		"  note: hi",
		"",
		"【SDK Information】",
		"  Name: sentry.python",
		"  Version: 2.1.0",
		"",
	})

	got := Format(issue, event, false)
	assert.Empty(t, cmp.Diff(want, got), "Format mismatch (-want +got)")
	assert.Equal(t, got, Format(issue, event, false), "Format is not deterministic")
}

func TestFormatWithoutEvent(t *testing.T) {
	issue := decode[sentry.Issue](t, fullIssue)
	want := lines(issueHeader, []string{"⚠️  Unable to retrieve event details"})

	for _, debug := range []bool{false, true} {
		assert.Empty(t, cmp.Diff(want, Format(issue, nil, debug)), "debug=%v (-want +got)", debug)
	}
}

func TestFormatDebugMarkers(t *testing.T) {
	issue := decode[sentry.Issue](t, `{"id":7,"title":"t","status":"resolved","level":"info","count":1,
		"firstSeen":"a","lastSeen":"b","permalink":"p"}`)
	event := decode[sentry.Event](t, `{"eventID":"e2","entries":[{"type":"message","data":{}},{"type":"exception"}]}`)

	want := lines([]string{
		Rule,
		"Issue ID: 7",
		"Title: t",
		"Status: resolved",
		"Level: info",
		"Count: 1",
		"First Seen: a",
		"Last Seen: b",
		"Permalink: p",
		Rule,
		"",
		"【DEBUG: Available Fields】",
		"Event top-level fields: eventID, entries",
		"Entry types: ['message', 'exception']",
		"",
		"【Event Information】",
		"Event ID: e2",
		"",
		"⚠️  Request information not found",
		"",
		"⚠️  Breadcrumbs not found",
		"",
		"⚠️  Spans not found",
		"",
		"【Stack Trace】",
	})

	assert.Empty(t, cmp.Diff(want, Format(issue, event, true)), "debug format (-want +got)")

	// Without debug, the markers and the field inventory disappear.
	plain := Format(issue, event, false)
	for _, marker := range []string{"DEBUG", "not found"} {
		assert.NotContains(t, plain, marker)
	}
}

func TestFormatDebugWithoutEntriesKey(t *testing.T) {
	issue := decode[sentry.Issue](t, `{"id":"1"}`)
	event := decode[sentry.Event](t, `{"eventID":"e3","sdk":{"name":"go"}}`)
	got := Format(issue, event, true)
	assert.Contains(t, got, "Event top-level fields: eventID, sdk\n\n")
	assert.NotContains(t, got, "Entry types")
	assert.Contains(t, got, "  Name: go\n  Version: N/A\n")
}

func TestFormatEmptyEntryData(t *testing.T) {
	issue := decode[sentry.Issue](t, `{"id":"1"}`)
	event := decode[sentry.Event](t, `{"entries":[
		{"type":"breadcrumbs","data":{"values":[]}},
		{"type":"breadcrumbs","data":{"values":[{"message":"second entry ignored"}]}},
		{"type":"spans","data":[]}
	]}`)
	got := Format(issue, event, false)
	want := "【Breadcrumbs】\n  (No breadcrumbs data)\n【Spans (Performance Traces)】\n  (No spans data)\n【Stack Trace】"
	assert.True(t, strings.HasSuffix(got, want), "got:\n%s\nwant suffix:\n%s", got, want)
	assert.NotContains(t, got, "second entry ignored", "only the first breadcrumbs entry is rendered")
}

func TestFormatRedactsHeaders(t *testing.T) {
	issue := decode[sentry.Issue](t, `{"id":"1"}`)
	event := decode[sentry.Event](t, `{"request":{"headers":{"AUTHORIZATION":"Bearer x","cookie":"a=b","Set-cookie":"c=d","Accept":"*/*"}}}`)
	got := Format(issue, event, false)

	for _, secret := range []string{"Bearer x", "a=b", "c=d"} {
		assert.NotContains(t, got, secret)
	}
	assert.Contains(t, got, "  Headers:\n    Accept: */*\n")
}

func TestFormatTruncation(t *testing.T) {
	long := func(r string, n int) string { return strings.Repeat(r, n) }

	event := &sentry.Event{}
	raw := `{
	  "entries": [
	    {"type": "spans", "data": [{"description": "` + long("é", 250) + `", "data": {"k": "` + long("d", 150) + `"}}]},
	    {"type": "exception", "data": {"values": [{"stacktrace": {"frames": [{"vars": {"v": "` + long("v", 300) + `"}}]}}]}}
	  ],
	  "extra": {"e": "` + long("x", 600) + `", "short": "` + long("y", 500) + `"}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), event))
	got := Format(&sentry.Issue{ID: "1"}, event, false)

	tests := []struct {
		name string
		want string
	}{
		{name: "span description", want: "    Description: " + long("é", 200) + "...\n"},
		{name: "span data", want: "      k: " + long("d", 100) + "...\n"},
		{name: "frame var", want: "    v = " + long("v", 200) + "...\n"},
		{name: "extra", want: "  e: " + long("x", 500) + "...\n"},
		{name: "extra at limit", want: "  short: " + long("y", 500) + "\n"},
	}
	for _, tt := range tests {
		assert.Contains(t, got, tt.want, tt.name)
	}
}

func TestFormatFrameDefaults(t *testing.T) {
	event := decode[sentry.Event](t, `{"entries":[{"type":"exception","data":{"values":[
		{"value":null,"mechanism":{"handled":true},"stacktrace":{"frames":[{"context":[[1,"x"]]}]}},
		{"type":"E","value":"m"}
	]}}]}`)
	got := Format(&sentry.Issue{ID: "1"}, event, false)
	want := strings.Join([]string{
		"【Stack Trace】",
		"\nException Type: Unknown",
		"Exception Message: N/A",
		"Mechanism: N/A",
		"\nCall Stack:",
		"  File: unknown:?",
		"  Function: unknown",
		"  Code:",
		"      1: x",
		"",
		"\nException Type: E",
		"Exception Message: m",
	}, "\n")
	assert.True(t, strings.HasSuffix(got, want), "got:\n%s\nwant suffix:\n%s", got, want)
}

func TestFormatScansEveryExceptionEntry(t *testing.T) {
	event := decode[sentry.Event](t, `{"entries":[
		{"type":"exception","data":{"values":[{"type":"FirstError","value":"a"}]}},
		{"type":"message","data":{"formatted":"between"}},
		{"type":"exception","data":{"values":[{"type":"SecondError","value":"b"}]}}
	]}`)
	got := Format(&sentry.Issue{ID: "1"}, event, false)
	want := strings.Join([]string{
		"【Stack Trace】",
		"\nException Type: FirstError",
		"Exception Message: a",
		"\nException Type: SecondError",
		"Exception Message: b",
	}, "\n")
	assert.True(t, strings.HasSuffix(got, want), "got:\n%s\nwant suffix:\n%s", got, want)
	assert.NotContains(t, got, "between")
}

func TestFormatSectionsWithoutKnownFields(t *testing.T) {
	event := decode[sentry.Event](t, `{
	  "user": {"geo": {"country_code": "AU"}},
	  "request": {"env": {"REMOTE_ADDR": "1"}},
	  "entries": [{"type": "exception", "data": {"values": [{"type": "E", "mechanism": {"data": {"k": 1}}}]}}],
	  "sdk": {"integrations": ["x"]}
	}`)
	got := Format(&sentry.Issue{ID: "1"}, event, true)

	assert.Contains(t, got, "【User Information】\n\n")
	assert.Contains(t, got, "【Request Information】\n\n")
	assert.NotContains(t, got, "Request information not found")
	assert.Contains(t, got, "Exception Message: N/A\nMechanism: N/A\n")
	assert.Contains(t, got, "【SDK Information】\n  Name: N/A\n  Version: N/A\n")

	empty := decode[sentry.Event](t, `{"user":{},"request":{},"sdk":{}}`)
	got = Format(&sentry.Issue{ID: "1"}, empty, true)
	assert.NotContains(t, got, "【User Information】")
	assert.Contains(t, got, "⚠️  Request information not found")
	assert.NotContains(t, got, "【SDK Information】")
}

func TestFormatPreservesDocumentOrder(t *testing.T) {
	event := decode[sentry.Event](t, `{"extra":{"zeta":1,"alpha":2,"mid":{"b":1,"a":2}}}`)
	got := Format(&sentry.Issue{ID: "1"}, event, false)
	want := "【Extra Information】\n  zeta: 1\n  alpha: 2\n  mid: {\"b\":1,\"a\":2}\n"
	assert.True(t, strings.HasSuffix(got, want), "got:\n%s\nwant suffix:\n%s", got, want)
}

func TestFormatSpanDuration(t *testing.T) {
	tests := []struct {
		name  string
		span  string
		want  string
		blank bool
	}{
		{name: "quarter second", span: `{"start_timestamp":1.000,"timestamp":1.250}`, want: "    Duration: 250.000ms\n"},
		{name: "missing end", span: `{"start_timestamp":1.0}`, blank: true},
		{name: "zero start", span: `{"start_timestamp":0,"timestamp":2.5}`, blank: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := decode[sentry.Event](t, `{"entries":[{"type":"spans","data":[`+tt.span+`]}]}`)
			got := Format(&sentry.Issue{ID: "1"}, event, false)
			if tt.blank {
				assert.NotContains(t, got, "Duration:")
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}
}

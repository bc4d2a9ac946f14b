// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package report renders a Sentry issue and its latest event as plain text.
// Output is a pure function of its inputs: map-valued fields are printed in
// the order the API sent them.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/marcelocantos/export-sentry-issue/internal/sentry"
)

// Rule separates the issue header and consecutive issues in an export.
var Rule = strings.Repeat("=", 80)

const (
	spanDescriptionLimit = 200
	spanDataLimit        = 100
	frameVarLimit        = 200
	extraLimit           = 500
)

var redactedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

// Format renders issue and event. A nil event produces the header, the
// error message and a marker saying event details were unavailable. Debug
// mode adds a field inventory and "not found" markers for missing sections.
func Format(issue *sentry.Issue, event *sentry.Event, debug bool) string {
	var b builder

	writeHeader(&b, issue)
	writeErrorMessage(&b, issue)

	if debug && event != nil {
		writeDebugFields(&b, event)
	}
	if event == nil {
		b.line("⚠️  Unable to retrieve event details")
		return b.String()
	}

	writeEventInfo(&b, event)
	writeUser(&b, event.User)
	writeRequest(&b, event.Request, debug)
	writeBreadcrumbs(&b, event, debug)
	writeSpans(&b, event, debug)
	writeStackTrace(&b, event)
	writeTags(&b, event.Tags)
	writeContexts(&b, event.Contexts)
	writeExtra(&b, event.Extra)
	writeSDK(&b, event.SDK)

	return b.String()
}

type builder struct {
	lines []string
}

func (b *builder) line(s string) { b.lines = append(b.lines, s) }

func (b *builder) linef(format string, args ...any) {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *builder) String() string { return strings.Join(b.lines, "\n") }

func writeHeader(b *builder, issue *sentry.Issue) {
	b.line(Rule)
	b.linef("Issue ID: %s", issue.ID)
	b.linef("Title: %s", issue.Title)
	b.linef("Status: %s", issue.Status)
	b.linef("Level: %s", issue.Level)
	b.linef("Count: %s", issue.Count)
	b.linef("First Seen: %s", issue.FirstSeen)
	b.linef("Last Seen: %s", issue.LastSeen)
	b.linef("Permalink: %s", issue.Permalink)
	b.line(Rule)
	b.line("")
}

func writeErrorMessage(b *builder, issue *sentry.Issue) {
	md := issue.Metadata
	if !md.Present() {
		return
	}
	b.line("【Error Message】")
	if md.Value != nil {
		b.line(*md.Value)
	} else {
		b.line("N/A")
	}
	if md.Type != "" {
		b.linef("Type: %s", md.Type)
	}
	b.line("")
}

func writeDebugFields(b *builder, event *sentry.Event) {
	b.line("【DEBUG: Available Fields】")
	b.linef("Event top-level fields: %s", strings.Join(event.Fields, ", "))
	for _, f := range event.Fields {
		if f == "entries" {
			b.linef("Entry types: %s", quotedList(event.EntryTypes()))
			break
		}
	}
	b.line("")
}

// quotedList renders names as ['a', 'b'].
func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func writeEventInfo(b *builder, event *sentry.Event) {
	b.line("【Event Information】")
	if event.EventID != "" {
		b.linef("Event ID: %s", event.EventID)
	}
	if event.DateCreated != "" {
		b.linef("Occurred at: %s", event.DateCreated)
	}
	b.line("")
}

func writeUser(b *builder, u *sentry.User) {
	if !u.Present() {
		return
	}
	b.line("【User Information】")
	if u.ID != "" {
		b.linef("  ID: %s", u.ID)
	}
	if u.Email != "" {
		b.linef("  Email: %s", u.Email)
	}
	if u.Username != "" {
		b.linef("  Username: %s", u.Username)
	}
	if u.IPAddress != "" {
		b.linef("  IP: %s", u.IPAddress)
	}
	b.line("")
}

func writeRequest(b *builder, r *sentry.Request, debug bool) {
	if !r.Present() {
		if debug {
			b.line("⚠️  Request information not found")
			b.line("")
		}
		return
	}
	b.line("【Request Information】")
	if r.URL != "" {
		b.linef("  URL: %s", r.URL)
	}
	if r.Method != "" {
		b.linef("  Method: %s", r.Method)
	}
	if !sentry.Blank(r.QueryString) {
		b.linef("  Query String: %s", sentry.Text(r.QueryString))
	}
	if !sentry.Blank(r.Data) {
		b.linef("  Request Data: %s", sentry.Text(r.Data))
	}
	if len(r.Headers) > 0 {
		b.line("  Headers:")
		for _, h := range r.Headers {
			if redactedHeaders[strings.ToLower(h.Key)] {
				continue
			}
			b.linef("    %s: %s", h.Key, h.Value)
		}
	}
	b.line("")
}

// firstEntry returns the first entry of the given type.
func firstEntry(event *sentry.Event, typ string) *sentry.Entry {
	for i := range event.Entries {
		if event.Entries[i].Type == typ {
			return &event.Entries[i]
		}
	}
	return nil
}

func writeBreadcrumbs(b *builder, event *sentry.Event, debug bool) {
	entry := firstEntry(event, sentry.EntryBreadcrumbs)
	if entry == nil {
		if debug {
			b.line("⚠️  Breadcrumbs not found")
			b.line("")
		}
		return
	}
	b.line("【Breadcrumbs】")
	if len(entry.Breadcrumbs) == 0 {
		b.line("  (No breadcrumbs data)")
		return
	}
	for _, bc := range entry.Breadcrumbs {
		b.linef("  [%s] [%s] [%s] %s",
			orDefault(sentry.Text(bc.Timestamp), "N/A"),
			orDefault(bc.Level, "info"),
			orDefault(bc.Category, "N/A"),
			orDefault(bc.Type, "default"))
		if bc.Message != "" {
			b.linef("    Message: %s", bc.Message)
		}
		for p := bc.Data.Oldest(); p != nil; p = p.Next() {
			switch p.Key {
			case "query":
				b.linef("    Query: %s", display(p.Value))
			case "duration":
				b.linef("    Duration: %sms", display(p.Value))
			default:
				b.linef("    %s: %s", p.Key, display(p.Value))
			}
		}
		b.line("")
	}
}

func writeSpans(b *builder, event *sentry.Event, debug bool) {
	entry := firstEntry(event, sentry.EntrySpans)
	if entry == nil {
		if debug {
			b.line("⚠️  Spans not found")
			b.line("")
		}
		return
	}
	b.line("【Spans (Performance Traces)】")
	if len(entry.Spans) == 0 {
		b.line("  (No spans data)")
		return
	}
	for _, span := range entry.Spans {
		b.linef("  Span ID: %s", orDefault(span.SpanID, "N/A"))
		b.linef("    Operation: %s", orDefault(span.Op, "N/A"))
		b.linef("    Status: %s", orDefault(span.Status, "unknown"))
		if nonZero(span.StartTimestamp) && nonZero(span.Timestamp) {
			b.linef("    Duration: %.3fms", (*span.Timestamp-*span.StartTimestamp)*1000)
		}
		if span.ExclusiveTime != nil {
			b.linef("    Exclusive Time: %.3fms", *span.ExclusiveTime)
		}
		if span.Description != "" {
			b.linef("    Description: %s", truncate(span.Description, spanDescriptionLimit))
		}
		if span.ParentSpanID != "" {
			b.linef("    Parent Span: %s", span.ParentSpanID)
		}
		if span.Data.Len() > 0 {
			b.line("    Data:")
			for p := span.Data.Oldest(); p != nil; p = p.Next() {
				b.linef("      %s: %s", p.Key, truncate(display(p.Value), spanDataLimit))
			}
		}
		b.line("")
	}
}

func writeStackTrace(b *builder, event *sentry.Event) {
	b.line("【Stack Trace】")
	for _, entry := range event.Entries {
		if entry.Type != sentry.EntryException {
			continue
		}
		for _, exc := range entry.Exceptions {
			writeException(b, exc)
		}
	}
}

func writeException(b *builder, exc sentry.Exception) {
	b.linef("\nException Type: %s", orDefault(exc.Type, "Unknown"))
	if exc.Value != nil {
		b.linef("Exception Message: %s", *exc.Value)
	} else {
		b.line("Exception Message: N/A")
	}
	if m := exc.Mechanism; m.Present() {
		b.linef("Mechanism: %s", orDefault(m.Type, "N/A"))
	}
	if exc.Stacktrace == nil {
		return
	}
	b.line("\nCall Stack:")
	frames := exc.Stacktrace.Frames
	for i := len(frames) - 1; i >= 0; i-- {
		writeFrame(b, frames[i])
	}
}

func writeFrame(b *builder, f sentry.Frame) {
	lineNo := "?"
	if f.LineNo != nil {
		lineNo = fmt.Sprint(*f.LineNo)
	}
	marker := ""
	if f.InApp {
		marker = "[APP] "
	}
	b.linef("  %sFile: %s:%s", marker, orDefault(f.Filename, "unknown"), lineNo)
	b.linef("  Function: %s", orDefault(f.Function, "unknown"))

	if f.Vars.Len() > 0 {
		b.line("  Variables:")
		for p := f.Vars.Oldest(); p != nil; p = p.Next() {
			b.linef("    %s = %s", p.Key, truncate(display(p.Value), frameVarLimit))
		}
	}
	if len(f.Context) > 0 {
		b.line("  Code:")
		for _, c := range f.Context {
			mark := "    "
			if f.LineNo != nil && c.Number == *f.LineNo {
				mark = ">>> "
			}
			b.linef("  %s%d: %s", mark, c.Number, c.Code)
		}
	}
	b.line("")
}

func writeTags(b *builder, tags []sentry.Tag) {
	if len(tags) == 0 {
		return
	}
	b.line("【Tags】")
	for _, t := range tags {
		b.linef("  %s: %s", t.Key, t.Value)
	}
	b.line("")
}

func writeContexts(b *builder, contexts *sentry.Fields) {
	if contexts.Len() == 0 {
		return
	}
	b.line("【Context Information】")
	for p := contexts.Oldest(); p != nil; p = p.Next() {
		body, ok := asObject(p.Value)
		if !ok {
			continue
		}
		switch p.Key {
		case "runtime":
			b.linef("  Runtime: %s", nameVersion(body))
		case "browser":
			b.linef("  Browser: %s", nameVersion(body))
		case "os":
			b.linef("  OS: %s", nameVersion(body))
		case "device":
			b.linef("  Device: %s", orDefault(field(body, "model"), "N/A"))
		default:
			b.linef("  %s:", p.Key)
			for kv := body.Oldest(); kv != nil; kv = kv.Next() {
				if kv.Key == "type" {
					continue
				}
				b.linef("    %s: %s", kv.Key, display(kv.Value))
			}
		}
	}
	b.line("")
}

func writeExtra(b *builder, extra *sentry.Fields) {
	if extra.Len() == 0 {
		return
	}
	b.line("【Extra Information】")
	for p := extra.Oldest(); p != nil; p = p.Next() {
		b.linef("  %s: %s", p.Key, truncate(display(p.Value), extraLimit))
	}
	b.line("")
}

func writeSDK(b *builder, sdk *sentry.SDK) {
	if !sdk.Present() {
		return
	}
	b.line("【SDK Information】")
	b.linef("  Name: %s", orDefault(sdk.Name, "N/A"))
	b.linef("  Version: %s", orDefault(sdk.Version, "N/A"))
	b.line("")
}

// asObject decodes raw when it holds a JSON object.
func asObject(raw json.RawMessage) (*sentry.Fields, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	m := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, m); err != nil {
		return nil, false
	}
	return m, true
}

func field(m *sentry.Fields, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m.Get(key)
	return sentry.Text(v)
}

// nameVersion joins the non-empty name and version of a context.
func nameVersion(m *sentry.Fields) string {
	var parts []string
	for _, k := range []string{"name", "version"} {
		if v := field(m, k); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// display renders a map value. Unlike sentry.Text, an explicit null prints
// as "null" so the key is not shown with an empty value.
func display(raw json.RawMessage) string {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "null"
	}
	return sentry.Text(raw)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonZero(f *float64) bool { return f != nil && *f != 0 }

// truncate cuts s to n runes and appends "..." when it was longer.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

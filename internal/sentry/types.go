// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package sentry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fields is a JSON object decoded in document order. Values stay undecoded;
// use Text to render one.
type Fields = orderedmap.OrderedMap[string, json.RawMessage]

// Scalar is a JSON scalar held as text. Strings are unquoted; numbers and
// booleans keep their JSON spelling; null is empty.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	*s = Scalar(Text(b))
	return nil
}

func (s Scalar) String() string { return string(s) }

// Issue is the subset of GET /issues/{id}/ used in reports.
type Issue struct {
	ID        Scalar    `json:"id"`
	ShortID   string    `json:"shortId"`
	Title     string    `json:"title"`
	Culprit   string    `json:"culprit"`
	Status    Scalar    `json:"status"`
	Level     Scalar    `json:"level"`
	Count     Scalar    `json:"count"`
	UserCount Scalar    `json:"userCount"`
	FirstSeen Scalar    `json:"firstSeen"`
	LastSeen  Scalar    `json:"lastSeen"`
	Permalink string    `json:"permalink"`
	Metadata  *Metadata `json:"metadata"`
}

// Metadata is the issue's error summary.
type Metadata struct {
	Type     string  `json:"type"`
	Value    *string `json:"value"`
	Title    string  `json:"title"`
	Filename string  `json:"filename"`
	Function string  `json:"function"`

	present bool
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	type plain Metadata
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Metadata(p)
	m.present = nonEmptyObject(b)
	return nil
}

// Present reports whether m was decoded from a non-empty object or carries
// any known field.
func (m *Metadata) Present() bool {
	return m != nil && (m.present || m.Type != "" || m.Value != nil || m.Title != "" || m.Filename != "" || m.Function != "")
}

// Event is one occurrence of an issue, as returned by the events endpoints.
type Event struct {
	EventID     string   `json:"eventID"`
	DateCreated string   `json:"dateCreated"`
	User        *User    `json:"user"`
	Request     *Request `json:"request"`
	Entries     []Entry  `json:"entries"`
	Tags        []Tag    `json:"tags"`
	Contexts    *Fields  `json:"contexts"`
	Extra       *Fields  `json:"extra"`
	SDK         *SDK     `json:"sdk"`

	// Fields lists the top-level keys of the response in document order.
	Fields []string `json:"-"`
	// Raw is the response body the event was decoded from.
	Raw json.RawMessage `json:"-"`
}

func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var keys []string
	err := jsonparser.ObjectEach(b, func(key, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("event keys: %w", err)
	}
	*e = Event(p)
	e.Fields = keys
	e.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// EntryTypes returns the type of every entry, in order.
func (e *Event) EntryTypes() []string {
	types := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		types = append(types, entry.Type)
	}
	return types
}

// User identifies the end user affected by an event.
type User struct {
	ID        Scalar `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	Name      string `json:"name"`

	present bool
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*u = User(p)
	u.present = nonEmptyObject(b)
	return nil
}

// Present reports whether u was decoded from a non-empty object or carries
// any known field. A user holding only geo or data is still present.
func (u *User) Present() bool {
	return u != nil && (u.present || u.ID != "" || u.Email != "" || u.Username != "" || u.IPAddress != "" || u.Name != "")
}

// Request is the HTTP request interface of an event.
type Request struct {
	URL         string          `json:"url"`
	Method      string          `json:"method"`
	QueryString json.RawMessage `json:"query_string"`
	Data        json.RawMessage `json:"data"`
	Headers     Headers         `json:"headers"`

	present bool
}

func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Request(p)
	r.present = nonEmptyObject(b)
	return nil
}

// Present reports whether r was decoded from a non-empty object or carries
// any known field. A request holding only env or cookies is still present.
func (r *Request) Present() bool {
	return r != nil && (r.present || r.URL != "" || r.Method != "" || !Blank(r.QueryString) || !Blank(r.Data) || len(r.Headers) > 0)
}

// Header is one request header.
type Header struct {
	Key   string
	Value string
}

// Headers accepts both the object form {"K": "v"} and Sentry's pair-list
// form [["K", "v"], ...], keeping document order.
type Headers []Header

func (h *Headers) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*h = nil
		return nil
	}
	switch b[0] {
	case '[':
		var pairs [][]json.RawMessage
		if err := json.Unmarshal(b, &pairs); err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		out := make(Headers, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) < 2 {
				continue
			}
			out = append(out, Header{Key: Text(pair[0]), Value: Text(pair[1])})
		}
		*h = out
	case '{':
		m := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(b, m); err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		out := make(Headers, 0, m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			out = append(out, Header{Key: p.Key, Value: Text(p.Value)})
		}
		*h = out
	default:
		return fmt.Errorf("headers: unexpected JSON %.20q", b)
	}
	return nil
}

// Entry is a typed sub-document of an event. Only breadcrumbs, spans and
// exception entries are decoded; the payload of any other type is dropped.
type Entry struct {
	Type        string
	Breadcrumbs []Breadcrumb
	Spans       []Span
	Exceptions  []Exception
}

const (
	EntryBreadcrumbs = "breadcrumbs"
	EntrySpans       = "spans"
	EntryException   = "exception"
)

func (e *Entry) UnmarshalJSON(b []byte) error {
	var head struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	*e = Entry{Type: head.Type}
	if Blank(head.Data) {
		return nil
	}
	switch head.Type {
	case EntryBreadcrumbs:
		var data struct {
			Values []Breadcrumb `json:"values"`
		}
		if err := json.Unmarshal(head.Data, &data); err != nil {
			return fmt.Errorf("breadcrumbs entry: %w", err)
		}
		e.Breadcrumbs = data.Values
	case EntrySpans:
		if err := json.Unmarshal(head.Data, &e.Spans); err != nil {
			return fmt.Errorf("spans entry: %w", err)
		}
	case EntryException:
		var data struct {
			Values []Exception `json:"values"`
		}
		if err := json.Unmarshal(head.Data, &data); err != nil {
			return fmt.Errorf("exception entry: %w", err)
		}
		e.Exceptions = data.Values
	}
	return nil
}

// Breadcrumb is one trail record leading up to an event.
type Breadcrumb struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Data      *Fields         `json:"data"`
}

// Span is a timed sub-operation of a transaction.
type Span struct {
	SpanID         string   `json:"span_id"`
	ParentSpanID   string   `json:"parent_span_id"`
	Op             string   `json:"op"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	StartTimestamp *float64 `json:"start_timestamp"`
	Timestamp      *float64 `json:"timestamp"`
	ExclusiveTime  *float64 `json:"exclusive_time"`
	Data           *Fields  `json:"data"`
}

// Exception is one value of an exception entry.
type Exception struct {
	Type       string      `json:"type"`
	Value      *string     `json:"value"`
	Module     string      `json:"module"`
	Mechanism  *Mechanism  `json:"mechanism"`
	Stacktrace *Stacktrace `json:"stacktrace"`
}

// Mechanism describes how an exception was captured.
type Mechanism struct {
	Type    string `json:"type"`
	Handled *bool  `json:"handled"`

	present bool
}

func (m *Mechanism) UnmarshalJSON(b []byte) error {
	type plain Mechanism
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Mechanism(p)
	m.present = nonEmptyObject(b)
	return nil
}

// Present reports whether m was decoded from a non-empty object or carries
// any known field.
func (m *Mechanism) Present() bool {
	return m != nil && (m.present || m.Type != "" || m.Handled != nil)
}

// Stacktrace holds frames oldest call first, as Sentry sends them.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Frame is one call-stack level.
type Frame struct {
	Filename string        `json:"filename"`
	AbsPath  string        `json:"absPath"`
	Module   string        `json:"module"`
	Function string        `json:"function"`
	LineNo   *int          `json:"lineNo"`
	ColNo    *int          `json:"colNo"`
	InApp    bool          `json:"inApp"`
	Vars     *Fields       `json:"vars"`
	Context  []ContextLine `json:"context"`
}

func (f *Frame) UnmarshalJSON(b []byte) error {
	type plain Frame
	var p struct {
		plain
		LineNo *float64 `json:"lineNo"`
		ColNo  *float64 `json:"colNo"`
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = Frame(p.plain)
	f.LineNo = wholeNumber(p.LineNo)
	f.ColNo = wholeNumber(p.ColNo)
	return nil
}

// wholeNumber truncates a JSON number such as 12 or 12.0 to an int.
func wholeNumber(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// ContextLine is one source line around a frame, sent as [number, "code"].
// Elements past the second are ignored.
type ContextLine struct {
	Number int
	Code   string
}

func (c *ContextLine) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("context line: %w", err)
	}
	if len(pair) < 2 {
		return fmt.Errorf("context line: want [number, code], got %d elements", len(pair))
	}
	var n float64
	if err := json.Unmarshal(pair[0], &n); err != nil {
		return fmt.Errorf("context line number: %w", err)
	}
	c.Number = int(n)
	c.Code = Text(pair[1])
	return nil
}

// Tag is one event tag.
type Tag struct {
	Key   string `json:"key"`
	Value Scalar `json:"value"`
}

// SDK names the client library that sent the event.
type SDK struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	present bool
}

func (s *SDK) UnmarshalJSON(b []byte) error {
	type plain SDK
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = SDK(p)
	s.present = nonEmptyObject(b)
	return nil
}

// Present reports whether s was decoded from a non-empty object or carries
// a name or version.
func (s *SDK) Present() bool {
	return s != nil && (s.present || s.Name != "" || s.Version != "")
}

// APIToken is one entry of GET /api/0/api-tokens/.
type APIToken struct {
	ID                  Scalar   `json:"id"`
	Name                string   `json:"name"`
	Scopes              []string `json:"scopes"`
	DateCreated         string   `json:"dateCreated"`
	TokenLastCharacters string   `json:"tokenLastCharacters"`
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package issueref extracts Sentry issue IDs from user input.
package issueref

import (
	"regexp"
	"strings"
)

var (
	issueURLPattern = regexp.MustCompile(`https?://([^/]+)/organizations/([^/]+)/issues/(\d+)`)
	separators      = regexp.MustCompile(`[,\s#]+`)
	nonDigits       = regexp.MustCompile(`\D`)
)

// Ref is one issue reference found in the input. Host and Org are set only
// for references given as issue URLs.
type Ref struct {
	ID   string
	Host string
	Org  string
}

// Parsed is the result of Parse.
type Parsed struct {
	Refs []Ref
	// FromURL reports whether the IDs came from issue URLs. URL input
	// carries no API base, so callers need a stored one.
	FromURL bool
}

// IDs returns the issue IDs in input order.
func (p Parsed) IDs() []string {
	ids := make([]string, 0, len(p.Refs))
	for _, r := range p.Refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// Parse accepts issue URLs (https://host/organizations/org/issues/123/) or
// free-form IDs such as "123, #456 789". When any URL is present only URLs
// are used; otherwise the input is split on commas, whitespace and '#', and
// the digits of each part form an ID.
func Parse(input string) Parsed {
	if matches := issueURLPattern.FindAllStringSubmatch(input, -1); len(matches) > 0 {
		p := Parsed{FromURL: true}
		for _, m := range matches {
			p.Refs = append(p.Refs, Ref{ID: m[3], Host: m[1], Org: m[2]})
		}
		return p
	}

	var p Parsed
	for _, part := range separators.Split(strings.TrimSpace(input), -1) {
		if id := nonDigits.ReplaceAllString(part, ""); id != "" {
			p.Refs = append(p.Refs, Ref{ID: id})
		}
	}
	return p
}

// SplitIDs splits a comma-separated ID list, trimming blanks and dropping
// empty items.
func SplitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

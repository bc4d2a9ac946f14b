// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package sentry

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Text renders a raw JSON value as display text. Strings are unquoted, null
// and empty input give "", anything else is compacted JSON.
func Text(raw json.RawMessage) string {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return s
		}
		return string(b)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return string(b)
	}
	return buf.String()
}

// Blank reports whether raw is absent or an empty value: null, "", 0, false,
// [] or {}.
func Blank(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return true
	}
	switch b[0] {
	case 'n', 'f':
		return true
	case 't':
		return false
	case '"':
		return len(b) == 2
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return false
		}
		return buf.Len() == 2
	}
	f, err := strconv.ParseFloat(string(b), 64)
	return err == nil && f == 0
}

// nonEmptyObject reports whether raw is a JSON object with at least one
// member.
func nonEmptyObject(raw []byte) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{' && !Blank(b)
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package sentry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidURL is returned when a URL does not contain an
	// http(s)://host/api/<digits> prefix.
	ErrInvalidURL = errors.New("invalid Sentry URL: expected http(s)://<host>/api/<version>")

	// ErrManualActionRequired is always returned by RevokeToken. Tokens
	// cannot be revoked through the API and must be removed in the Sentry UI.
	ErrManualActionRequired = errors.New("token revocation requires manual action in Sentry settings")
)

// HTTPError is a non-2xx response from the Sentry API.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + truncate(body, 300)
	}
	return msg
}

// HasStatus reports whether err wraps an *HTTPError with the given status.
func HasStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == status
}

// IsNotFound reports whether err wraps a 404 response.
func IsNotFound(err error) bool { return HasStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err wraps a 401 response.
func IsUnauthorized(err error) bool { return HasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports whether err wraps a 403 response.
func IsForbidden(err error) bool { return HasStatus(err, http.StatusForbidden) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

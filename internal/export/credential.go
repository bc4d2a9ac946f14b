// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"errors"
	"fmt"

	"github.com/marcelocantos/export-sentry-issue/internal/credentials"
)

// ErrMissingCredential is returned when no layer supplies a token or a base
// URL.
var ErrMissingCredential = errors.New("missing credential")

// ResolveCredential fills each field from the first layer that sets it, so
// callers pass layers in precedence order (explicit values, environment,
// stored file).
func ResolveCredential(layers ...credentials.Credential) (credentials.Credential, error) {
	var out credentials.Credential
	for _, l := range layers {
		if out.Token == "" {
			out.Token = l.Token
		}
		if out.BaseURL == "" {
			out.BaseURL = l.BaseURL
		}
	}
	switch {
	case out.Token == "":
		return out, fmt.Errorf("%w: no token provided", ErrMissingCredential)
	case out.BaseURL == "":
		return out, fmt.Errorf("%w: no base URL provided", ErrMissingCredential)
	}
	return out, nil
}

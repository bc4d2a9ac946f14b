// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package credentials persists the Sentry base URL and API token in a single
// JSON file readable only by its owner.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirMode  fs.FileMode = 0o700
	fileMode fs.FileMode = 0o600
)

// ErrInsecurePermissions is wrapped by LoadResult.Warning when the credential
// file is readable by group or other.
var ErrInsecurePermissions = errors.New("credential file is readable by other users")

// Credential is the stored record.
type Credential struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

// MaskedToken returns a display form of the token: the first 20 characters
// followed by "..." for long tokens, "***" otherwise.
func (c Credential) MaskedToken() string {
	r := []rune(c.Token)
	if len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return "***"
}

// LoadResult is the outcome of Load. Credential is nil when no file exists.
// Warning is non-nil when the file was read but its permissions are too
// open; callers decide whether that is fatal.
type LoadResult struct {
	Credential *Credential
	Warning    error
}

// Store reads and writes the credential file at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the credential file location.
func (s *Store) Path() string { return s.path }

// Save replaces the stored record. The directory is forced to 0700 and the
// file is written through a 0600 temp file renamed into place, so the token
// is never readable by others, even briefly.
func (s *Store) Save(baseURL, token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.Chmod(dir, dirMode); err != nil {
		return fmt.Errorf("chmod credential dir: %w", err)
	}

	data, err := json.MarshalIndent(Credential{BaseURL: baseURL, Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename credential file: %w", err)
	}
	tmpPath = ""

	if err := os.Chmod(s.path, fileMode); err != nil {
		return fmt.Errorf("chmod credential file: %w", err)
	}
	return nil
}

// Load reads the stored record.
func (s *Store) Load() (*LoadResult, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat credential file: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credential file %s: %w", s.path, err)
	}

	res := &LoadResult{Credential: &cred}
	if mode := info.Mode().Perm(); mode&0o044 != 0 {
		res.Warning = fmt.Errorf("%w: %s has mode %04o; run: chmod 600 %s",
			ErrInsecurePermissions, s.path, mode, s.path)
	}
	return res, nil
}

// Delete removes the stored record and reports whether one existed.
func (s *Store) Delete() (bool, error) {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("remove credential file: %w", err)
	}
	return true, nil
}

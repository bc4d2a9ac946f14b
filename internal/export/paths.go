// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// DefaultFileName names an output file after the current time. With single
// set and exactly one id, the id is part of the name.
func DefaultFileName(now time.Time, ids []string, single bool) string {
	ts := now.Format(timestampLayout)
	if single && len(ids) == 1 {
		return "sentry_issue_" + ids[0] + "_" + ts + ".txt"
	}
	return "sentry_issues_" + ts + ".txt"
}

// DisplayPath maps a path inside outputDir to the same location under
// hostDir, for processes whose output directory is a mounted volume. The
// path is returned unchanged unless both directories are set and path lies
// inside outputDir.
func DisplayPath(path, outputDir, hostDir string) string {
	if outputDir == "" || hostDir == "" {
		return path
	}
	rel, err := filepath.Rel(filepath.Clean(outputDir), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(hostDir, rel)
}

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathcmp provides shared path normalization helpers used for
// comparing library paths, mount prefixes, and symlink targets. Media
// paths arrive forward-slashed from config and from the filesystem, so
// we normalize using path semantics (not filepath).
package pathcmp

import (
	"path"
	"strings"
)

// NormalizePath normalizes a file path for comparison by:
// - Converting backslashes to forward slashes
// - Removing trailing slashes
// - Cleaning the path (removing . and .. where possible)
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizePathFold is a case-folded version of NormalizePath for case-insensitive comparisons.
func NormalizePathFold(p string) string {
	return strings.ToLower(NormalizePath(p))
}

// HasPathPrefix reports whether p lives under prefix, respecting path
// boundaries: /opt/media2 is not under /opt/media, but /opt/media/x is.
// Both arguments are expected to be normalized already.
func HasPathPrefix(p, prefix string) bool {
	if prefix == "" {
		return false
	}
	if p == prefix {
		return true
	}
	if prefix == "/" {
		return strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, prefix) && len(p) > len(prefix) && p[len(prefix)] == '/'
}

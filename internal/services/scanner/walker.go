// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// symlinkVisit is one symlink found during a library walk.
type symlinkVisit struct {
	Path   string
	Target string
	Broken bool
}

// walkLibraryRoot walks a library tree and calls visit for every symlink.
// Directories under ignorePaths are skipped wholesale; symlinked directories
// are never descended into.
func walkLibraryRoot(ctx context.Context, root string, ignorePaths []string, visit func(symlinkVisit) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if os.IsPermission(err) {
				return nil // Skip inaccessible, continue walk
			}
			return err
		}

		if d.IsDir() {
			if isIgnoredPath(path, ignorePaths) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if isIgnoredPath(path, ignorePaths) {
			return nil
		}

		target, err := os.Readlink(path)
		if err != nil {
			return nil // Link vanished mid-walk
		}

		// Stat follows the link chain; failure means the target is gone.
		_, statErr := os.Stat(path)

		return visit(symlinkVisit{
			Path:   path,
			Target: target,
			Broken: statErr != nil,
		})
	})
}

// isIgnoredPath checks if path matches any ignore prefix with boundary safety.
// Ensures /data/foo doesn't match /data/foobar (requires separator after prefix).
func isIgnoredPath(path string, ignorePaths []string) bool {
	for _, prefix := range ignorePaths {
		if path == prefix {
			return true
		}
		if strings.HasPrefix(path, prefix) {
			if len(path) > len(prefix) && path[len(prefix)] == filepath.Separator {
				return true
			}
		}
	}
	return false
}

// NormalizeIgnorePaths validates and normalizes ignore paths.
// All paths must be absolute.
func NormalizeIgnorePaths(paths []string) ([]string, error) {
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned := filepath.Clean(p)
		if !filepath.IsAbs(cleaned) {
			return nil, fmt.Errorf("ignore path must be absolute: %s", p)
		}
		result = append(result, cleaned)
	}
	return result, nil
}

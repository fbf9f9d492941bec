// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo carries the version metadata stamped in at build time.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Set via ldflags at release time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent identifies this build in outbound HTTP requests.
var UserAgent string

func init() {
	UserAgent = fmt.Sprintf("refresherr/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String returns a human-readable version summary.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s", Version, Commit, Date)
}

// JSON returns the version metadata as JSON.
func JSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	})
}

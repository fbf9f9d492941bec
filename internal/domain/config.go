// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/Bollo123view/refresherr/pkg/pathcmp"
)

// Config represents the application configuration
type Config struct {
	Version       string
	Host          string `yaml:"host" mapstructure:"host"`
	Port          int    `yaml:"port" mapstructure:"port"`
	LogLevel      string `yaml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `yaml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `yaml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `yaml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `yaml:"dataDir" mapstructure:"dataDir"`

	MetricsEnabled bool `yaml:"metricsEnabled" mapstructure:"metricsEnabled"`

	// Mount is the rclone/debrid mount root that broken symlinks point into.
	// MountCheckFile, when set, must exist before any repair run starts so we
	// never mass-repair links that are only broken because the mount is down.
	Mount          string `yaml:"mount" mapstructure:"mount"`
	MountCheckFile string `yaml:"mountCheckFile" mapstructure:"mountCheckFile"`

	// LibraryRoots are the primary library directories scanned for symlinks.
	LibraryRoots []string `yaml:"libraryRoots" mapstructure:"libraryRoots"`
	IgnorePaths  []string `yaml:"ignorePaths" mapstructure:"ignorePaths"`

	// SecondaryRoot is the secondary library used as the hotswap donor pool.
	// HotswapAllowPrefixes gates which resolved targets a repaired symlink may
	// point at; an empty list disables hotswap entirely.
	SecondaryRoot        string   `yaml:"secondaryRoot" mapstructure:"secondaryRoot"`
	HotswapAllowPrefixes []string `yaml:"hotswapAllowPrefixes" mapstructure:"hotswapAllowPrefixes"`

	// PathMappings rewrite symlink targets between the scanning host's view of
	// the mount and the canonical mount path, longest prefix wins.
	PathMappings []PathMapping `yaml:"pathMappings" mapstructure:"pathMappings"`

	// Routes bind library path prefixes to remote-search targets.
	Routes []Route `yaml:"routes" mapstructure:"routes"`

	Relay         RelayConfig         `yaml:"relay" mapstructure:"relay"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator" mapstructure:"orchestrator"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}

// PathMapping rewrites a path prefix. Source and Target are compared after
// normalization, so trailing slashes in config are harmless.
type PathMapping struct {
	Source string `yaml:"source" mapstructure:"source"`
	Target string `yaml:"target" mapstructure:"target"`
}

// Route binds a library prefix to a named search target. Scope selects the
// relay search mode (for example "tv" or "movie").
type Route struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Target string `yaml:"target" mapstructure:"target"`
	Scope  string `yaml:"scope" mapstructure:"scope"`
}

// RelayConfig describes the outbound search relay that dispatched actions
// are fired at.
type RelayConfig struct {
	BaseURL string        `yaml:"baseUrl" mapstructure:"baseUrl"`
	Token   string        `yaml:"token" mapstructure:"token"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" mapstructure:"retries"`
}

// NotificationsConfig points run-outcome notifications at a Discord-style
// webhook. An empty WebhookURL disables them.
type NotificationsConfig struct {
	WebhookURL  string        `yaml:"webhookUrl" mapstructure:"webhookUrl"`
	OnCompleted bool          `yaml:"onCompleted" mapstructure:"onCompleted"`
	OnFailed    bool          `yaml:"onFailed" mapstructure:"onFailed"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// OrchestratorConfig tunes repair-run scheduling and safety limits.
type OrchestratorConfig struct {
	Enabled               bool          `yaml:"enabled" mapstructure:"enabled"`
	AutoInterval          time.Duration `yaml:"autoInterval" mapstructure:"autoInterval"`
	MaxRunDuration        time.Duration `yaml:"maxRunDuration" mapstructure:"maxRunDuration"`
	StuckRunThreshold     time.Duration `yaml:"stuckRunThreshold" mapstructure:"stuckRunThreshold"`
	SeasonSearchThreshold int           `yaml:"seasonSearchThreshold" mapstructure:"seasonSearchThreshold"`
	DispatchBatchSize     int           `yaml:"dispatchBatchSize" mapstructure:"dispatchBatchSize"`
	RescanAfterRepair     bool          `yaml:"rescanAfterRepair" mapstructure:"rescanAfterRepair"`
}

// Validate checks the configuration for values that would make a repair run
// unsafe or meaningless.
func (c *Config) Validate() error {
	if len(c.LibraryRoots) == 0 {
		return errors.New("config: at least one library root is required")
	}
	for _, root := range c.LibraryRoots {
		if pathcmp.NormalizePath(root) == "" {
			return errors.New("config: empty library root")
		}
	}

	seen := make(map[string]struct{}, len(c.Routes))
	for _, r := range c.Routes {
		prefix := pathcmp.NormalizePath(r.Prefix)
		if prefix == "" {
			return errors.New("config: route with empty prefix")
		}
		if r.Target == "" {
			return fmt.Errorf("config: route %q has no target", r.Prefix)
		}
		if _, ok := seen[prefix]; ok {
			return fmt.Errorf("config: duplicate route prefix %q", prefix)
		}
		seen[prefix] = struct{}{}
	}

	for _, m := range c.PathMappings {
		if pathcmp.NormalizePath(m.Source) == "" || pathcmp.NormalizePath(m.Target) == "" {
			return errors.New("config: path mapping with empty source or target")
		}
	}

	if c.Relay.BaseURL == "" && len(c.Routes) > 0 {
		return errors.New("config: routes configured but relay.baseUrl is empty")
	}

	if c.Orchestrator.SeasonSearchThreshold < 1 {
		return errors.New("config: orchestrator.seasonSearchThreshold must be at least 1")
	}

	return nil
}

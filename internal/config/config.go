// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the YAML configuration, applies REFRESHERR__ env
// overrides, and hot-reloads route/mapping changes while running.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Bollo123view/refresherr/internal/domain"
)

// AppConfig wraps the loaded configuration and its viper instance.
type AppConfig struct {
	viper *viper.Viper

	mu     sync.RWMutex
	config *domain.Config

	reloadCallbacks []func(*domain.Config)
}

// New loads configuration from configPath (creating a starter file when it
// does not exist) and starts watching it for changes.
func New(configPath, version string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	// REFRESHERR__HOST, REFRESHERR__RELAY_BASEURL, etc.
	v.SetEnvPrefix("REFRESHERR_")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = defaultConfigPath()
	}
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeDefaultConfig(configPath); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		log.Info().Str("path", configPath).Msg("Created default config file")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	ac := &AppConfig{viper: v}

	cfg, err := ac.unmarshal(version)
	if err != nil {
		return nil, err
	}
	ac.config = cfg

	v.OnConfigChange(func(e fsnotify.Event) {
		ac.handleReload(version, e.Name)
	})
	v.WatchConfig()

	return ac, nil
}

func (ac *AppConfig) unmarshal(version string) (*domain.Config, error) {
	cfg := &domain.Config{}
	if err := ac.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (ac *AppConfig) handleReload(version, name string) {
	cfg, err := ac.unmarshal(version)
	if err != nil {
		log.Error().Err(err).Str("path", name).Msg("Config reload rejected, keeping previous config")
		return
	}

	ac.mu.Lock()
	ac.config = cfg
	callbacks := ac.reloadCallbacks
	ac.mu.Unlock()

	log.Info().Str("path", name).Msg("Config reloaded")
	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Config returns the current configuration snapshot. Callers must not
// mutate the returned value.
func (ac *AppConfig) Config() *domain.Config {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.config
}

// OnReload registers a callback invoked after a successful config reload.
func (ac *AppConfig) OnReload(cb func(*domain.Config)) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.reloadCallbacks = append(ac.reloadCallbacks, cb)
}

// DatabasePath returns the SQLite path, defaulting next to the data dir.
func (ac *AppConfig) DatabasePath() string {
	cfg := ac.Config()
	if cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, "refresherr.db")
	}
	return filepath.Join(filepath.Dir(ac.viper.ConfigFileUsed()), "refresherr.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8282)
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("logMaxSize", 50)
	v.SetDefault("logMaxBackups", 3)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("relay.timeout", 15*time.Second)
	v.SetDefault("relay.retries", 2)
	v.SetDefault("orchestrator.enabled", true)
	v.SetDefault("orchestrator.autoInterval", 6*time.Hour)
	v.SetDefault("orchestrator.maxRunDuration", time.Hour)
	v.SetDefault("orchestrator.stuckRunThreshold", 2*time.Hour)
	v.SetDefault("orchestrator.seasonSearchThreshold", 2)
	v.SetDefault("orchestrator.dispatchBatchSize", 25)
	v.SetDefault("orchestrator.rescanAfterRepair", true)
	v.SetDefault("notifications.onCompleted", true)
	v.SetDefault("notifications.onFailed", true)
	v.SetDefault("notifications.timeout", 10*time.Second)
}

func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "refresherr", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "refresherr", "config.yaml")
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	content := `# refresherr configuration

host: "0.0.0.0"
port: 8282

logLevel: "INFO"
#logPath: "/var/log/refresherr/refresherr.log"

#dataDir: "/var/lib/refresherr"

# The debrid/rclone mount broken symlinks point into. When mountCheckFile is
# set, repair runs refuse to start unless that file exists.
#mount: "/mnt/debrid"
#mountCheckFile: "/mnt/debrid/.mounted"

libraryRoots: []
#  - "/opt/media/jelly"

#ignorePaths:
#  - "/opt/media/jelly/extras"

# Secondary library used as the hotswap donor pool.
#secondaryRoot: "/opt/media/cinesync"
#hotswapAllowPrefixes:
#  - "/mnt/debrid"

#pathMappings:
#  - source: "/data"
#    target: "/mnt/debrid"

#routes:
#  - prefix: "/opt/media/jelly/tv"
#    target: "sonarr_tv"
#    scope: "tv"
#  - prefix: "/opt/media/jelly/movies"
#    target: "radarr"
#    scope: "movie"

relay:
  baseUrl: ""
  token: ""
  timeout: 15s
  retries: 2

orchestrator:
  enabled: true
  autoInterval: 6h
  maxRunDuration: 1h
  seasonSearchThreshold: 2
  dispatchBatchSize: 25
  rescanAfterRepair: true

# Run outcomes posted to a Discord-compatible webhook. Leave webhookUrl empty
# to disable.
#notifications:
#  webhookUrl: ""
#  onCompleted: true
#  onFailed: true
`

	return os.WriteFile(path, []byte(content), 0o644)
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/mwfern/vmdeck/internal/device"
)

// Config captures the tunables vmdeck reads at startup. Everything has a
// working default so the dashboard runs without a config file present.
type Config struct {
	// RefreshInterval is how often the fleet lists are re-polled.
	RefreshInterval time.Duration
	// DetailDebounce delays detail fetches while the selection is moving.
	DetailDebounce time.Duration
	// LogDebounce delays log stream retargeting while the selection is moving.
	LogDebounce time.Duration
	// DetailTTL is how long a cached device detail result stays fresh.
	DetailTTL time.Duration
	// NotificationTTL is how long a notification stays visible.
	NotificationTTL time.Duration
	// LogCapacity bounds the in-memory log buffer, in lines.
	LogCapacity int

	// AndroidSDKRoot overrides ANDROID_HOME discovery when set.
	AndroidSDKRoot string
	// DefaultRAMMB and DefaultStorageMB seed the Android create form.
	DefaultRAMMB     int
	DefaultStorageMB int
}

const (
	defaultConfigPath = "~/.config/vmdeck/config.toml"

	defaultRefreshInterval = 2 * time.Second
	defaultDetailDebounce  = 100 * time.Millisecond
	defaultLogDebounce     = 100 * time.Millisecond
	defaultDetailTTL       = 5 * time.Minute
	defaultNotificationTTL = 5 * time.Second
	defaultLogCapacity     = 1000

	defaultRAMMB     = 2048
	defaultStorageMB = 8192
)

// Load locates and parses the vmdeck config, falling back to defaults when
// missing. An empty path means the default location under ~/.config.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		RefreshIntervalMS int    `toml:"refresh_interval_ms"`
		DetailDebounceMS  int    `toml:"detail_debounce_ms"`
		LogDebounceMS     int    `toml:"log_debounce_ms"`
		DetailTTLSec      int    `toml:"detail_ttl_sec"`
		NotificationSec   int    `toml:"notification_ttl_sec"`
		LogCapacity       int    `toml:"log_capacity"`
		AndroidSDKRoot    string `toml:"android_sdk_root"`
		DefaultRAMMB      int    `toml:"default_ram_mb"`
		DefaultStorageMB  int    `toml:"default_storage_mb"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if raw.RefreshIntervalMS > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshIntervalMS) * time.Millisecond
	}
	if raw.DetailDebounceMS > 0 {
		cfg.DetailDebounce = time.Duration(raw.DetailDebounceMS) * time.Millisecond
	}
	if raw.LogDebounceMS > 0 {
		cfg.LogDebounce = time.Duration(raw.LogDebounceMS) * time.Millisecond
	}
	if raw.DetailTTLSec > 0 {
		cfg.DetailTTL = time.Duration(raw.DetailTTLSec) * time.Second
	}
	if raw.NotificationSec > 0 {
		cfg.NotificationTTL = time.Duration(raw.NotificationSec) * time.Second
	}
	if raw.LogCapacity > 0 {
		cfg.LogCapacity = raw.LogCapacity
	}

	if root := strings.TrimSpace(raw.AndroidSDKRoot); root != "" {
		cfg.AndroidSDKRoot = mustExpand(root)
	}
	if raw.DefaultRAMMB >= device.MinRAMMB && raw.DefaultRAMMB <= device.MaxRAMMB {
		cfg.DefaultRAMMB = raw.DefaultRAMMB
	}
	if raw.DefaultStorageMB >= device.MinStorageMB && raw.DefaultStorageMB <= device.MaxStorageMB {
		cfg.DefaultStorageMB = raw.DefaultStorageMB
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RefreshInterval:  defaultRefreshInterval,
		DetailDebounce:   defaultDetailDebounce,
		LogDebounce:      defaultLogDebounce,
		DetailTTL:        defaultDetailTTL,
		NotificationTTL:  defaultNotificationTTL,
		LogCapacity:      defaultLogCapacity,
		DefaultRAMMB:     defaultRAMMB,
		DefaultStorageMB: defaultStorageMB,
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

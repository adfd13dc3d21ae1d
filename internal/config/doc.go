// Package config handles loading and parsing vmdeck configuration files.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/vmdeck/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing/zero, use defaults per field
//
// # TOML Format
//
// Example config.toml:
//
//	refresh_interval_ms = 2000
//	detail_debounce_ms = 100
//	log_debounce_ms = 100
//	detail_ttl_sec = 300
//	notification_ttl_sec = 5
//	log_capacity = 1000
//	android_sdk_root = "~/Android/Sdk"
//	default_ram_mb = 2048
//	default_storage_mb = 8192
//
// All fields are optional. Tilde expansion is performed on paths, and
// out-of-range sizing values are silently replaced by defaults rather
// than rejecting the whole file.
//
// Missing config files are NOT an error - defaults are used instead, so
// vmdeck works out-of-the-box with no configuration present.
//
// The package is read-only and stateless: configuration is loaded once
// at startup and returned as an immutable Config struct.
package config

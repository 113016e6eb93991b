// Package config handles loading and parsing CaptionCraft configuration files.
//
// # Overview
//
// This package reads CaptionCraft's TOML configuration to discover the server
// endpoint, the local cache location, and the background refresh interval.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/captioncraft/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/captioncraft/config.toml
//   - Server URL: http://127.0.0.1:5000
//   - Cache file: ~/.local/share/captioncraft/cache.db
//   - Refresh interval: 30 seconds
//
// # TOML Format
//
// Example config.toml:
//
//	server_url = "http://127.0.0.1:5000"
//	cache_path = "~/.local/share/captioncraft/cache.db"
//	refresh_seconds = 30
//
// All fields are optional. Tilde expansion is performed automatically on the
// cache path and on the config file location itself.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error - defaults are used instead. The
// client works out-of-the-box against a locally running server without any
// configuration file.
package config

// Package config loads passport settings.
//
// # Resolution
//
// Load applies three layers in order:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file at the given path, or ~/.config/passport/config.toml
//  3. PASSPORT_* environment variables
//
// A missing file is not an error. Empty or out-of-range values fall back to
// the defaults, and every path field is tilde-expanded and made absolute.
//
// # TOML Format
//
//	data_dir = "~/.local/share/passport"
//	quota_bytes = 5242880
//	api_base = "https://restcountries.com/v3.1"
//	registry = ""          # empty uses the built-in country list
//	max_dimension = 1600
//	quality = 0.82
//	log_path = ""          # empty means <data_dir>/passport.log
//
// # Environment
//
//   - PASSPORT_DATA_DIR
//   - PASSPORT_QUOTA_BYTES
//   - PASSPORT_API_BASE
//   - PASSPORT_REGISTRY
//
// Derived paths: DatabasePath is <data_dir>/passport.db.
package config

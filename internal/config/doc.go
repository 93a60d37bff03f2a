// Package config loads, normalizes, and validates clipscribe configuration.
//
// Configuration lives in a TOML file (default ~/.config/clipscribe/config.toml)
// and is merged over built-in defaults. Validation runs before any pipeline
// starts; a config that would yield a stalled run (zero workers, unknown model)
// is rejected up front.
package config

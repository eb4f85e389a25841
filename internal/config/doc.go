// Package config loads the marker-overlay TOML configuration.
//
// Values are layered: built-in defaults, then the first config file found
// (~/.config/marker-overlay/config.toml, ./marker-overlay.toml, or an
// explicit --config path), then command-line overrides applied by main.
package config

// Package config loads and validates the snatch TOML configuration.
//
// The file lives at ~/.config/snatch/config.toml by default. Every path
// field is tilde-expanded and made absolute during load. Runtime-tunable
// download settings (destination directory, concurrency, audio format) only
// take their defaults from here; the live values are persisted in the blob
// store and edited through the settings command surface.
package config

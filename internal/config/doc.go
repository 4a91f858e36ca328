// Package config loads, normalizes, and validates ownership service
// configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// OWNERSHIP_NTFY_TOPIC and OWNERSHIP_OWNER. The Config type centralizes every
// knob the daemon and CLI need, from matching thresholds to the inbox the
// watcher drains.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

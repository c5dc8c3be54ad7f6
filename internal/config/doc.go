// Package config loads, normalizes, and validates lapse configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// LAPSE_NTFY_TOPIC. The Config type centralizes every knob the daemon and CLI
// need: recording parameters, worker invocation, finalization bounds, and
// notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical values, and clear validation errors.
package config

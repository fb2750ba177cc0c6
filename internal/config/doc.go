// Package config loads, normalizes, and validates barscan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BARSCAN_API_TOKEN and BARSCAN_NATS_URL. The Config type centralizes every
// knob the daemon and CLI need: where the scan log lives, which camera feeds
// frames, how the dedup window and status banner are timed, and how the torch
// is driven.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

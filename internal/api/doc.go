// Package api defines wire-format types, converters, and the HTTP client for
// the daemon API. It translates session, scan log, catalog, and preflight
// models into transport-friendly DTOs that the CLI and TUI render without
// coupling to internal types.
//
// # Key Types
//
// DaemonStatus: running state, session snapshot, camera supervisor state,
// preflight results, and dependency availability.
//
// ScanResponse/TorchResponse: results of the two operator actions.
//
// ScansResponse: recent scan log entries joined with catalog names.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Errors are flattened to strings. Timestamps
// use RFC3339 with milliseconds in UTC; ParseTime reads them back.
package api

// Package services defines shared utilities consumed by the scan session, the
// daemon, and the command line client.
//
// Key responsibilities:
//   - Context helpers that stamp scan attempt IDs, trigger origins, and
//     correlation identifiers for logging and event publishing.
//   - Structured error markers plus the Wrap helper so collaborator failures
//     (camera, recognizer, scan log, torch) classify consistently.
//
// Use these helpers when wiring new collaborators so error handling and
// observability stay uniform across the daemon.
package services

// Package daemon coordinates the long-running barscan process and its system
// integration points.
//
// It wires the scan session, a supervised frame source, the udev hotplug
// monitor, and the HTTP API into a single lifecycle with flock-based locking
// to prevent multiple instances. Startup runs the preflight checks; a failed
// required check, or the camera refusing access later on, stops the daemon.
//
// Keep orchestration here: scan semantics live in the scan package and
// capture in frame, while the daemon focuses on startup, shutdown, restarts,
// and exposing state over the API.
package daemon

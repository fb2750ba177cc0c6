// Package logging assembles structured slog loggers and formatting helpers used
// across barscan.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so session code can automatically
// tag log lines with scan attempt IDs, trigger origins, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging

// Package notifications pushes scan activity to ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op otherwise. Publisher adapts a Service to events.Publisher so the scan
// session can fan out to it alongside NATS without knowing about HTTP.
package notifications

// Package events publishes scan session activity to NATS subjects so other
// processes (inventory, POS, dashboards) can react to scans without tailing
// the scan log.
package events

import (
	"context"
	"strings"
	"time"
)

// Subject suffixes appended to the configured prefix.
const (
	SuffixAccepted  = "accepted"
	SuffixDuplicate = "duplicate"
	SuffixInvalid   = "invalid"
	SuffixNothing   = "nothing_detected"
	SuffixError     = "error"
	SuffixArmed     = "armed"
	SuffixTorch     = "torch"
)

// Publisher is the interface for publishing session events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// ScanCompleted is published when a scan attempt finishes.
type ScanCompleted struct {
	AttemptID    string    `json:"attempt_id"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message"`
	Value        string    `json:"value,omitempty"`
	Symbology    string    `json:"symbology,omitempty"`
	Product      string    `json:"product,omitempty"`
	ObservedAt   time.Time `json:"observed_at"`
	PersistError string    `json:"persist_error,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// ScanArmed is published when the gate opens for a new attempt.
type ScanArmed struct {
	AttemptID string    `json:"attempt_id"`
	Trigger   string    `json:"trigger,omitempty"`
	ArmedAt   time.Time `json:"armed_at"`
}

// TorchToggled is published after every torch toggle.
type TorchToggled struct {
	On        bool      `json:"on"`
	Error     string    `json:"error,omitempty"`
	ToggledAt time.Time `json:"toggled_at"`
}

// Subject joins prefix and suffix with a dot.
func Subject(prefix, suffix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

// Wildcard returns the subject matching every event under prefix.
func Wildcard(prefix string) string {
	return Subject(prefix, ">")
}

package scanlog

import (
	"strings"
	"time"
)

// TimestampLayout is the local-time format written after the separator.
const TimestampLayout = "2006-01-02 15:04:05"

const separator = " | "

// Entry is one parsed log line.
type Entry struct {
	Value      string    `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
	Raw        string    `json:"raw"`
}

// FormatLine renders a log line including the trailing newline.
func FormatLine(value string, at time.Time) string {
	return value + separator + at.Format(TimestampLayout) + "\n"
}

// ParseLine splits a log line at its last separator. Lines without a
// parseable timestamp are still returned with a zero ObservedAt and ok=false
// so callers can decide whether to show them.
func ParseLine(line string) (Entry, bool) {
	raw := strings.TrimRight(line, "\r\n")
	entry := Entry{Raw: raw, Value: strings.TrimSpace(raw)}
	idx := strings.LastIndex(raw, separator)
	if idx < 0 {
		return entry, false
	}
	entry.Value = raw[:idx]
	stamp := strings.TrimSpace(raw[idx+len(separator):])
	at, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return entry, false
	}
	entry.ObservedAt = at
	return entry, true
}

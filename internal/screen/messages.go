package screen

import "barscan/internal/api"

// StatusMsg carries a daemon status poll result.
type StatusMsg struct {
	Status api.DaemonStatus
}

// StatusErrorMsg is sent when the daemon cannot be reached.
type StatusErrorMsg struct {
	Err error
}

// ScanResponseMsg carries the response to a scan request.
type ScanResponseMsg struct {
	Response api.ScanResponse
}

// TorchResponseMsg carries the response to a flash toggle.
type TorchResponseMsg struct {
	Response api.TorchResponse
}

// ActionErrorMsg is sent when a scan or flash request fails.
type ActionErrorMsg struct {
	Action string
	Err    error
}

// PollTickMsg triggers the next status poll.
type PollTickMsg struct{}

// ClearNoticeMsg clears a transient notice once its generation still matches.
type ClearNoticeMsg struct {
	Generation int
}

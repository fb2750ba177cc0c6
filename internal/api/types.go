package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Banner is the transient status line shown to the operator.
type Banner struct {
	Message string `json:"message"`
	Visible bool   `json:"visible"`
	ShownAt string `json:"shownAt,omitempty"`
	Version uint64 `json:"version"`
}

// Outcome describes one completed scan attempt.
type Outcome struct {
	AttemptID    string `json:"attemptId,omitempty"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Value        string `json:"value,omitempty"`
	Symbology    string `json:"symbology,omitempty"`
	Product      string `json:"product,omitempty"`
	At           string `json:"at,omitempty"`
	PersistError string `json:"persistError,omitempty"`
	Error        string `json:"error,omitempty"`
}

// LastScan is the most recently accepted value held by the dedup filter.
type LastScan struct {
	Value      string `json:"value"`
	ObservedAt string `json:"observedAt"`
}

// FrameStats reports frame mailbox counters.
type FrameStats struct {
	Offered uint64 `json:"offered"`
	Dropped uint64 `json:"dropped"`
	Taken   uint64 `json:"taken"`
}

// Session is the transport view of the scan session.
type Session struct {
	Gate        string     `json:"gate"`
	InFlight    bool       `json:"inFlight"`
	AttemptID   string     `json:"attemptId,omitempty"`
	Torch       bool       `json:"torch"`
	Banner      Banner     `json:"banner"`
	Last        *LastScan  `json:"last,omitempty"`
	LastOutcome *Outcome   `json:"lastOutcome,omitempty"`
	Frames      FrameStats `json:"frames"`
	Discarded   uint64     `json:"discarded"`
	Attempts    uint64     `json:"attempts"`
}

// CameraStatus reports the frame source supervisor and device probe.
type CameraStatus struct {
	Source      string `json:"source"`
	Running     bool   `json:"running"`
	Restarts    int    `json:"restarts"`
	LastError   string `json:"lastError,omitempty"`
	LastErrorAt string `json:"lastErrorAt,omitempty"`
	Present     bool   `json:"present"`
	Detail      string `json:"detail,omitempty"`
	Hotplug     bool   `json:"hotplug"`
}

// CheckResult is one preflight check.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// DependencyStatus describes an external binary the daemon relies on.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information for status views.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"startedAt,omitempty"`
	LockFilePath string             `json:"lockFilePath"`
	ScanLog      string             `json:"scanLog"`
	CatalogPath  string             `json:"catalogPath,omitempty"`
	Session      Session            `json:"session"`
	Camera       CameraStatus       `json:"camera"`
	Preflight    []CheckResult      `json:"preflight"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ScanResponse is returned by POST /api/scan. Outcome is set only when the
// caller asked to wait.
type ScanResponse struct {
	Armed   bool     `json:"armed"`
	Session Session  `json:"session"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// TorchResponse is returned by POST /api/torch. Error carries the device
// failure while On still reflects the toggled mirror.
type TorchResponse struct {
	On    bool   `json:"on"`
	Error string `json:"error,omitempty"`
}

// ScanEntry is one line of the scan log.
type ScanEntry struct {
	Value      string `json:"value"`
	ObservedAt string `json:"observedAt,omitempty"`
	Product    string `json:"product,omitempty"`
}

// ScansResponse wraps recent scan log entries, oldest first.
type ScansResponse struct {
	Path    string      `json:"path"`
	Entries []ScanEntry `json:"entries"`
}

// Product is a catalog entry.
type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Barcode   string  `json:"barcode"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

// ProductResponse wraps a single product lookup.
type ProductResponse struct {
	Product Product `json:"product"`
}

// HealthResponse is returned by the unauthenticated health probe.
type HealthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	EventType string `json:"eventType,omitempty"`
}

package scanlog

import (
	"os"
	"time"

	"github.com/gofrs/flock"

	"barscan/internal/services"
)

// Writer appends accepted scans to the log file.
type Writer struct {
	path string
	lock *flock.Flock
}

// NewWriter returns a writer for path. Nothing is opened until Append. The
// advisory lock is taken on the log file itself, so no sidecar file appears
// next to it.
func NewWriter(path string) *Writer {
	return &Writer{path: path, lock: flock.New(path)}
}

// Path returns the log file location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one line for value observed at at.
func (w *Writer) Append(value string, at time.Time) error {
	if w == nil {
		return services.Wrap(services.ErrPersistence, "scanlog", "append", "writer not configured", nil)
	}
	// Create before locking so the log keeps its 0644 mode.
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return w.wrap("open", err)
	}
	if err := w.lock.Lock(); err != nil {
		_ = file.Close()
		return w.wrap("lock", err)
	}
	defer func() { _ = w.lock.Unlock() }()

	if _, err := file.WriteString(FormatLine(value, at)); err != nil {
		_ = file.Close()
		return w.wrap("write", err)
	}
	if err := file.Close(); err != nil {
		return w.wrap("close", err)
	}
	return nil
}

func (w *Writer) wrap(operation string, err error) error {
	return services.Wrap(services.ErrPersistence, "scanlog", operation, w.path, err)
}

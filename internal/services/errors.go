package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPermission    = errors.New("permission denied")
	ErrDevice        = errors.New("device error")
	ErrRecognizer    = errors.New("recognizer error")
	ErrPersistence   = errors.New("persistence error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// EventType maps an error to the event_type value recorded in structured logs
// and published scan events.
func EventType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermission):
		return "permission_denied"
	case errors.Is(err, ErrTimeout):
		return "recognize_timeout"
	case errors.Is(err, ErrRecognizer):
		return "recognizer_failed"
	case errors.Is(err, ErrPersistence):
		return "scan_log_write_failed"
	case errors.Is(err, ErrDevice):
		return "device_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration_invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient_failure"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

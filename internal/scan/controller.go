package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"barscan/internal/logging"
	"barscan/internal/recognize"
	"barscan/internal/services"
)

// User-visible status messages.
const (
	MessageScannedPrefix = "Scanned: "
	MessageDuplicate     = "Duplicate or invalid"
	MessageNothing       = "Nothing detected"
	MessageError         = "Scan error"
)

// DefaultDedupWindow is the repeat-suppression interval.
const DefaultDedupWindow = 1500 * time.Millisecond

// Kind classifies an attempt outcome.
type Kind string

const (
	KindAccepted  Kind = "accepted"
	KindDuplicate Kind = "duplicate"
	KindInvalid   Kind = "invalid"
	KindNothing   Kind = "nothing_detected"
	KindError     Kind = "error"
)

// Record is the most recently accepted scan.
type Record struct {
	Value      string    `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Outcome describes one completed attempt.
type Outcome struct {
	AttemptID  string    `json:"attempt_id,omitempty"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	Value      string    `json:"value,omitempty"`
	Symbology  string    `json:"symbology,omitempty"`
	Product    string    `json:"product,omitempty"`
	At         time.Time `json:"at"`
	PersistErr error     `json:"-"`
	Err        error     `json:"-"`
}

// Appender persists accepted values.
type Appender interface {
	Append(value string, at time.Time) error
}

// ShouldAccept applies the duplicate-suppression rule.
func ShouldAccept(last *Record, candidate string, now time.Time, window time.Duration) bool {
	if last == nil {
		return true
	}
	if candidate != last.Value {
		return true
	}
	return now.Sub(last.ObservedAt) > window
}

// Controller turns recognition results into outcomes and persists accepted
// values. It is not safe for concurrent use.
type Controller struct {
	window time.Duration
	log    Appender
	last   *Record
	logger *slog.Logger
}

// NewController builds a controller. A non-positive window uses DefaultDedupWindow.
func NewController(window time.Duration, log Appender, logger *slog.Logger) *Controller {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Controller{
		window: window,
		log:    log,
		logger: logging.NewComponentLogger(logger, "dedup"),
	}
}

// Last returns the most recently accepted record.
func (c *Controller) Last() (Record, bool) {
	if c.last == nil {
		return Record{}, false
	}
	return *c.last, true
}

// Decide maps a recognition result to an outcome. Accepted values are
// appended to the log before Decide returns; an append failure is logged and
// recorded in Outcome.PersistErr but does not change the message.
func (c *Controller) Decide(ctx context.Context, result recognize.Result, recognizeErr error, now time.Time) Outcome {
	logger := logging.WithContext(ctx, c.logger)
	outcome := Outcome{At: now, Symbology: result.Symbology}

	switch {
	case recognizeErr != nil:
		outcome.Kind = KindError
		outcome.Message = MessageError
		outcome.Err = recognizeErr
		return outcome
	case !result.Found:
		outcome.Kind = KindNothing
		outcome.Message = MessageNothing
		return outcome
	case result.Value == "":
		outcome.Kind = KindInvalid
		outcome.Message = MessageDuplicate
		return outcome
	}

	candidate := result.Value
	outcome.Value = candidate
	if !ShouldAccept(c.last, candidate, now, c.window) {
		outcome.Kind = KindDuplicate
		outcome.Message = MessageDuplicate
		logger.Debug("scan rejected as repeat",
			logging.Args(logging.DecisionAttrs("dedup", "reject", "same value within window")...)...,
		)
		return outcome
	}

	if c.log != nil {
		if err := c.log.Append(candidate, now); err != nil {
			outcome.PersistErr = err
			logging.WarnWithContext(logger, "scan log append failed", services.EventType(err),
				logging.Barcode(candidate),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.scan_log permissions and free space"),
				logging.String(logging.FieldImpact, "scan shown but not recorded"),
				logging.Alert("unrecorded_scan"),
			)
		}
	} else {
		outcome.PersistErr = services.Wrap(services.ErrPersistence, "dedup", "append", "no scan log configured", nil)
	}

	c.last = &Record{Value: candidate, ObservedAt: now}
	outcome.Kind = KindAccepted
	outcome.Message = MessageScannedPrefix + candidate
	return outcome
}

// IsTimeout reports whether an outcome failed because recognition ran too long.
func (o Outcome) IsTimeout() bool {
	return errors.Is(o.Err, services.ErrTimeout)
}

package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"barscan/internal/recognize"
	"barscan/internal/services"
)

type appendCall struct {
	value string
	at    time.Time
}

type recordingAppender struct {
	calls []appendCall
	err   error
}

func (a *recordingAppender) Append(value string, at time.Time) error {
	a.calls = append(a.calls, appendCall{value: value, at: at})
	return a.err
}

func found(value string) recognize.Result {
	return recognize.Result{Found: true, Value: value, Symbology: recognize.EAN13}
}

func TestShouldAccept(t *testing.T) {
	base := time.Date(2024, 3, 5, 9, 7, 2, 0, time.Local)
	last := &Record{Value: "4006381333931", ObservedAt: base}
	window := 1500 * time.Millisecond

	tests := []struct {
		name      string
		last      *Record
		candidate string
		now       time.Time
		want      bool
	}{
		{name: "first scan", last: nil, candidate: "4006381333931", now: base, want: true},
		{name: "same value inside window", last: last, candidate: "4006381333931", now: base.Add(500 * time.Millisecond), want: false},
		{name: "same value at window boundary", last: last, candidate: "4006381333931", now: base.Add(window), want: false},
		{name: "same value after window", last: last, candidate: "4006381333931", now: base.Add(window + time.Millisecond), want: true},
		{name: "different value immediately", last: last, candidate: "96385074", now: base, want: true},
		{name: "clock moved backwards", last: last, candidate: "4006381333931", now: base.Add(-time.Hour), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAccept(tt.last, tt.candidate, tt.now, window); got != tt.want {
				t.Fatalf("ShouldAccept = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControllerDedupTimeline(t *testing.T) {
	log := &recordingAppender{}
	controller := NewController(1500*time.Millisecond, log, nil)
	t0 := time.Date(2024, 3, 5, 9, 7, 2, 0, time.Local)
	ctx := context.Background()

	steps := []struct {
		value   string
		offset  time.Duration
		kind    Kind
		message string
	}{
		{"X", 0, KindAccepted, "Scanned: X"},
		{"X", 500 * time.Millisecond, KindDuplicate, MessageDuplicate},
		{"X", 2000 * time.Millisecond, KindAccepted, "Scanned: X"},
		{"Y", 2100 * time.Millisecond, KindAccepted, "Scanned: Y"},
	}
	for _, step := range steps {
		outcome := controller.Decide(ctx, found(step.value), nil, t0.Add(step.offset))
		if outcome.Kind != step.kind || outcome.Message != step.message {
			t.Fatalf("at +%s: got %s %q, want %s %q", step.offset, outcome.Kind, outcome.Message, step.kind, step.message)
		}
	}

	want := []appendCall{
		{"X", t0},
		{"X", t0.Add(2000 * time.Millisecond)},
		{"Y", t0.Add(2100 * time.Millisecond)},
	}
	if len(log.calls) != len(want) {
		t.Fatalf("expected %d appends, got %d", len(want), len(log.calls))
	}
	for i := range want {
		if log.calls[i].value != want[i].value || !log.calls[i].at.Equal(want[i].at) {
			t.Fatalf("append %d = %+v, want %+v", i, log.calls[i], want[i])
		}
	}
	last, ok := controller.Last()
	if !ok || last.Value != "Y" {
		t.Fatalf("unexpected last record: %+v %v", last, ok)
	}
}

func TestControllerRejectedScanDoesNotMoveWindow(t *testing.T) {
	controller := NewController(1500*time.Millisecond, &recordingAppender{}, nil)
	t0 := time.Now()
	ctx := context.Background()

	controller.Decide(ctx, found("X"), nil, t0)
	controller.Decide(ctx, found("X"), nil, t0.Add(1400*time.Millisecond))
	outcome := controller.Decide(ctx, found("X"), nil, t0.Add(1600*time.Millisecond))
	if outcome.Kind != KindAccepted {
		t.Fatalf("expected acceptance measured from the last accepted scan, got %s", outcome.Kind)
	}
}

func TestControllerNonValueOutcomes(t *testing.T) {
	log := &recordingAppender{}
	controller := NewController(0, log, nil)
	now := time.Now()
	ctx := context.Background()

	nothing := controller.Decide(ctx, recognize.Result{}, nil, now)
	if nothing.Kind != KindNothing || nothing.Message != MessageNothing {
		t.Fatalf("unexpected nothing outcome: %+v", nothing)
	}

	empty := controller.Decide(ctx, recognize.Result{Found: true}, nil, now)
	if empty.Kind != KindInvalid || empty.Message != MessageDuplicate {
		t.Fatalf("unexpected empty-value outcome: %+v", empty)
	}

	cause := errors.New("decoder crashed")
	failed := controller.Decide(ctx, recognize.Result{}, cause, now)
	if failed.Kind != KindError || failed.Message != MessageError || !errors.Is(failed.Err, cause) {
		t.Fatalf("unexpected error outcome: %+v", failed)
	}

	if len(log.calls) != 0 {
		t.Fatalf("non-value outcomes must not persist, got %d appends", len(log.calls))
	}
	if _, ok := controller.Last(); ok {
		t.Fatal("non-value outcomes must not update the last record")
	}
}

func TestControllerPersistFailureStillAccepts(t *testing.T) {
	log := &recordingAppender{err: services.Wrap(services.ErrPersistence, "scanlog", "open", "/ro/barcode.txt", errors.New("read-only file system"))}
	controller := NewController(time.Second, log, nil)
	now := time.Now()

	outcome := controller.Decide(context.Background(), found("X"), nil, now)
	if outcome.Kind != KindAccepted || outcome.Message != "Scanned: X" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if !errors.Is(outcome.PersistErr, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", outcome.PersistErr)
	}
	if last, ok := controller.Last(); !ok || last.Value != "X" {
		t.Fatalf("expected last record to be updated, got %+v", last)
	}
	repeat := controller.Decide(context.Background(), found("X"), nil, now.Add(100*time.Millisecond))
	if repeat.Kind != KindDuplicate {
		t.Fatalf("expected repeat suppression after failed persist, got %s", repeat.Kind)
	}
}

func TestOutcomeIsTimeout(t *testing.T) {
	timeout := Outcome{Kind: KindError, Err: services.Wrap(services.ErrTimeout, "session", "recognize", "", context.DeadlineExceeded)}
	if !timeout.IsTimeout() {
		t.Fatal("expected timeout outcome")
	}
	if (Outcome{Kind: KindError, Err: errors.New("boom")}).IsTimeout() {
		t.Fatal("plain error should not be a timeout")
	}
}

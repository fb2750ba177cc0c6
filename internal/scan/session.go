package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"barscan/internal/events"
	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/recognize"
	"barscan/internal/services"
)

// DefaultRecognizeTimeout bounds a single recognition.
const DefaultRecognizeTimeout = 5 * time.Second

const (
	torchTimeout   = 5 * time.Second
	lookupTimeout  = time.Second
	publishTimeout = 2 * time.Second
)

// ErrSessionStopped is returned by Session methods once Run has exited.
var ErrSessionStopped = errors.New("scan session stopped")

// ProductLookup resolves a barcode to a catalog product name.
type ProductLookup interface {
	ProductName(ctx context.Context, barcode string) (string, bool, error)
}

// Options wires a Session's collaborators. Recognizer is required; every
// other field has a usable zero value.
type Options struct {
	Recognizer       recognize.Recognizer
	Log              Appender
	Torch            TorchDevice
	Publisher        events.Publisher
	SubjectPrefix    string
	Products         ProductLookup
	Logger           *slog.Logger
	DedupWindow      time.Duration
	StatusClearDelay time.Duration
	RecognizeTimeout time.Duration
	Clock            func() time.Time
	NewID            func() string
}

// Snapshot is a point-in-time copy of session state.
type Snapshot struct {
	Gate        string      `json:"gate"`
	InFlight    bool        `json:"in_flight"`
	AttemptID   string      `json:"attempt_id,omitempty"`
	Torch       bool        `json:"torch"`
	Banner      Banner      `json:"banner"`
	Last        *Record     `json:"last,omitempty"`
	LastOutcome *Outcome    `json:"last_outcome,omitempty"`
	Frames      frame.Stats `json:"frames"`
	Discarded   uint64      `json:"discarded"`
	Attempts    uint64      `json:"attempts"`
}

type commandKind int

const (
	cmdArm commandKind = iota
	cmdTorch
	cmdSnapshot
)

type command struct {
	kind   commandKind
	ctx    context.Context
	reply  chan commandReply
	waiter chan Outcome
}

type commandReply struct {
	snapshot Snapshot
	err      error
}

type completion struct {
	attemptID string
	frameSeq  uint64
	result    recognize.Result
	err       error
}

// Session is the single owner of scan state. Create it with NewSession, feed
// frames into Frames(), and drive it with Run.
type Session struct {
	recognizer    recognize.Recognizer
	controller    *Controller
	presenter     *Presenter
	torch         *Torch
	gate          Gate
	publisher     events.Publisher
	subjectPrefix string
	products      ProductLookup
	logger        *slog.Logger
	timeout       time.Duration
	clock         func() time.Time
	newID         func() string

	frames      *frame.Mailbox
	commands    chan command
	completions chan completion
	done        chan struct{}
	started     atomic.Bool

	attemptID      string
	attemptTrigger string
	waiters        []chan Outcome
	lastOutcome    *Outcome
	discarded      uint64
	attempts       uint64
}

// NewSession validates options and builds an idle session.
func NewSession(opts Options) (*Session, error) {
	if opts.Recognizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "recognizer is required", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "session")
	timeout := opts.RecognizeTimeout
	if timeout <= 0 {
		timeout = DefaultRecognizeTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	presenter := NewPresenter(opts.StatusClearDelay)
	presenter.now = clock

	return &Session{
		recognizer:    opts.Recognizer,
		controller:    NewController(opts.DedupWindow, opts.Log, opts.Logger),
		presenter:     presenter,
		torch:         NewTorch(opts.Torch, opts.Logger),
		publisher:     opts.Publisher,
		subjectPrefix: opts.SubjectPrefix,
		products:      opts.Products,
		logger:        logger,
		timeout:       timeout,
		clock:         clock,
		newID:         newID,
		frames:        frame.NewMailbox(),
		commands:      make(chan command),
		completions:   make(chan completion),
		done:          make(chan struct{}),
	}, nil
}

// Frames returns the mailbox frame sources should offer into.
func (s *Session) Frames() *frame.Mailbox {
	return s.frames
}

// Banner returns the current status banner without going through the worker.
func (s *Session) Banner() Banner {
	return s.presenter.Current()
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes commands, frames, and completions until ctx is cancelled.
// It must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scan session already running")
	}
	defer close(s.done)
	defer s.presenter.Stop()

	s.logger.Info("scan session started",
		logging.Duration("recognize_timeout", s.timeout),
		logging.Duration("dedup_window", s.controller.window),
		logging.String(logging.FieldEventType, "session_started"),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan session stopped",
				logging.Uint64("attempts", s.attempts),
				logging.Uint64("discarded", s.discarded),
				logging.String(logging.FieldEventType, "session_stopped"),
			)
			return ctx.Err()
		case cmd := <-s.commands:
			s.handleCommand(ctx, cmd)
		case <-s.frames.Ready():
			s.handleFrame(ctx)
		case c := <-s.completions:
			s.complete(ctx, c)
		}
	}
}

// Arm opens the scan gate. Arming an armed gate is a no-op.
func (s *Session) Arm(ctx context.Context) (Snapshot, error) {
	reply, err := s.send(ctx, cmdArm, nil)
	if err != nil {
		return Snapshot{}, err
	}
	return reply.snapshot, nil
}

// Scan arms the gate and waits for the attempt's outcome. When the gate is
// already armed, Scan waits for the attempt in progress.
func (s *Session) Scan(ctx context.Context) (Outcome, error) {
	waiter := make(chan Outcome, 1)
	if _, err := s.send(ctx, cmdArm, waiter); err != nil {
		return Outcome{}, err
	}
	select {
	case outcome := <-waiter:
		return outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-s.done:
		return Outcome{}, ErrSessionStopped
	}
}

// ToggleTorch flips the torch. The returned snapshot reflects the new mirror
// even when the device reported an error.
func (s *Session) ToggleTorch(ctx context.Context) (Snapshot, error) {
	reply, err := s.send(ctx, cmdTorch, nil)
	if err != nil {
		return Snapshot{}, err
	}
	return reply.snapshot, reply.err
}

// Snapshot returns the current session state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply, err := s.send(ctx, cmdSnapshot, nil)
	if err != nil {
		return Snapshot{}, err
	}
	return reply.snapshot, nil
}

func (s *Session) send(ctx context.Context, kind commandKind, waiter chan Outcome) (commandReply, error) {
	cmd := command{kind: kind, ctx: ctx, reply: make(chan commandReply, 1), waiter: waiter}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	case <-s.done:
		return commandReply{}, ErrSessionStopped
	}
	select {
	case reply := <-cmd.reply:
		return reply, nil
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	case <-s.done:
		return commandReply{}, ErrSessionStopped
	}
}

func (s *Session) handleCommand(ctx context.Context, cmd command) {
	var reply commandReply
	switch cmd.kind {
	case cmdArm:
		s.arm(ctx, cmd)
	case cmdTorch:
		reply.err = s.toggleTorch(ctx, cmd)
	}
	reply.snapshot = s.snapshot()
	cmd.reply <- reply
}

func (s *Session) arm(ctx context.Context, cmd command) {
	if cmd.waiter != nil {
		s.waiters = append(s.waiters, cmd.waiter)
	}
	if !s.gate.Arm() {
		return
	}
	s.attemptID = s.newID()
	s.attemptTrigger, _ = services.TriggerFromContext(cmd.ctx)

	actx := s.attemptContext(ctx)
	logging.WithContext(actx, s.logger).Info("scan armed",
		logging.String(logging.FieldEventType, "scan_armed"),
	)
	s.publish(actx, events.SuffixArmed, events.ScanArmed{
		AttemptID: s.attemptID,
		Trigger:   s.attemptTrigger,
		ArmedAt:   s.clock(),
	})
}

func (s *Session) toggleTorch(ctx context.Context, cmd command) error {
	tctx, cancel := context.WithTimeout(cmd.ctx, torchTimeout)
	defer cancel()
	on, err := s.torch.Toggle(tctx)
	event := events.TorchToggled{On: on, ToggledAt: s.clock()}
	if err != nil {
		event.Error = err.Error()
	}
	s.logger.Info("torch toggled",
		logging.Bool("on", on),
		logging.String(logging.FieldEventType, "torch_toggled"),
	)
	s.publish(ctx, events.SuffixTorch, event)
	return err
}

func (s *Session) handleFrame(ctx context.Context) {
	f, ok := s.frames.Take()
	if !ok {
		return
	}
	if !s.gate.Admit() {
		s.discarded++
		return
	}
	s.attempts++
	s.dispatch(ctx, f)
}

func (s *Session) dispatch(ctx context.Context, f frame.Frame) {
	attemptID := s.attemptID
	actx := s.attemptContext(ctx)
	logging.WithContext(actx, s.logger).Debug("recognition started",
		logging.FrameSeq(f.Seq),
		logging.Int("frame_bytes", len(f.Data)),
	)
	go func() {
		c := completion{attemptID: attemptID, frameSeq: f.Seq}
		c.result, c.err = s.recognize(actx, f)
		select {
		case s.completions <- c:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) recognize(ctx context.Context, f frame.Frame) (recognize.Result, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		result recognize.Result
		err    error
	}
	ch := make(chan reply, 1)
	go func() {
		result, err := s.recognizer.Recognize(rctx, f)
		ch <- reply{result: result, err: err}
	}()

	timeoutErr := func(cause error) error {
		return services.Wrap(services.ErrTimeout, "session", "recognize", fmt.Sprintf("no result within %s", s.timeout), cause)
	}
	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return recognize.Result{}, timeoutErr(r.err)
		}
		return r.result, r.err
	case <-rctx.Done():
		if err := ctx.Err(); err != nil {
			return recognize.Result{}, err
		}
		return recognize.Result{}, timeoutErr(rctx.Err())
	}
}

func (s *Session) complete(ctx context.Context, c completion) {
	actx := s.attemptContext(ctx)
	outcome := s.controller.Decide(actx, c.result, c.err, s.clock())
	outcome.AttemptID = c.attemptID
	s.presenter.Show(outcome.Message)
	s.gate.Complete()
	s.attemptID = ""
	s.attemptTrigger = ""

	if outcome.Kind == KindAccepted {
		outcome.Product = s.lookupProduct(actx, outcome.Value)
	}
	s.lastOutcome = &outcome
	s.logOutcome(actx, c.frameSeq, outcome)

	for _, waiter := range s.waiters {
		waiter <- outcome
	}
	s.waiters = nil

	s.publish(actx, outcomeSuffix(outcome.Kind), outcomeEvent(outcome))
}

func (s *Session) attemptContext(ctx context.Context) context.Context {
	actx := services.WithAttemptID(ctx, s.attemptID)
	return services.WithTrigger(actx, s.attemptTrigger)
}

func (s *Session) lookupProduct(ctx context.Context, value string) string {
	if s.products == nil {
		return ""
	}
	lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	name, ok, err := s.products.ProductName(lctx, value)
	if err != nil {
		logging.WithContext(ctx, s.logger).Debug("product lookup failed", logging.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return name
}

func (s *Session) logOutcome(ctx context.Context, frameSeq uint64, outcome Outcome) {
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.String("kind", string(outcome.Kind)),
		logging.String("message", outcome.Message),
		logging.FrameSeq(frameSeq),
	}
	if outcome.Value != "" {
		attrs = append(attrs, logging.Barcode(outcome.Value))
	}
	if outcome.Symbology != "" {
		attrs = append(attrs, logging.Symbology(outcome.Symbology))
	}
	if outcome.Product != "" {
		attrs = append(attrs, logging.String("product", outcome.Product))
	}

	switch outcome.Kind {
	case KindError:
		attrs = append(attrs,
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "press Scan to retry; check camera focus and lighting"),
			logging.String(logging.FieldImpact, "no value recorded for this attempt"),
		)
		logging.WarnWithContext(logger, "scan attempt failed", services.EventType(outcome.Err), attrs...)
	case KindAccepted:
		attrs = append(attrs, logging.String(logging.FieldEventType, "scan_accepted"))
		logger.Info("scan accepted", logging.Args(attrs...)...)
	default:
		attrs = append(attrs, logging.String(logging.FieldEventType, "scan_"+string(outcome.Kind)))
		logger.Info("scan completed", logging.Args(attrs...)...)
	}
}

func (s *Session) publish(ctx context.Context, suffix string, event any) {
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, events.Subject(s.subjectPrefix, suffix), event); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "event publish failed", "event_publish_failed",
			logging.String("suffix", suffix),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.nats_url and broker health"),
			logging.String(logging.FieldImpact, "subscribers miss this event"),
		)
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Gate:      s.gate.State().String(),
		InFlight:  s.gate.InFlight(),
		AttemptID: s.attemptID,
		Torch:     s.torch.On(),
		Banner:    s.presenter.Current(),
		Frames:    s.frames.Stats(),
		Discarded: s.discarded,
		Attempts:  s.attempts,
	}
	if last, ok := s.controller.Last(); ok {
		snap.Last = &last
	}
	if s.lastOutcome != nil {
		outcome := *s.lastOutcome
		snap.LastOutcome = &outcome
	}
	return snap
}

func outcomeSuffix(kind Kind) string {
	switch kind {
	case KindAccepted:
		return events.SuffixAccepted
	case KindDuplicate:
		return events.SuffixDuplicate
	case KindInvalid:
		return events.SuffixInvalid
	case KindNothing:
		return events.SuffixNothing
	default:
		return events.SuffixError
	}
}

func outcomeEvent(outcome Outcome) events.ScanCompleted {
	event := events.ScanCompleted{
		AttemptID:  outcome.AttemptID,
		Kind:       string(outcome.Kind),
		Message:    outcome.Message,
		Value:      outcome.Value,
		Symbology:  outcome.Symbology,
		Product:    outcome.Product,
		ObservedAt: outcome.At,
	}
	if outcome.PersistErr != nil {
		event.PersistError = outcome.PersistErr.Error()
	}
	if outcome.Err != nil {
		event.Error = outcome.Err.Error()
	}
	return event
}

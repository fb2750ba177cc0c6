package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"barscan/internal/frame"
	"barscan/internal/logging"
	"barscan/internal/services"
)

const defaultRestartDelay = 3 * time.Second

// CameraState is the frame source supervisor's view of capture.
type CameraState struct {
	Source      string    `json:"source"`
	Running     bool      `json:"running"`
	Restarts    int       `json:"restarts"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
	Failed      bool      `json:"failed"`
}

// supervisor keeps a frame source running, restarting it after a delay or
// as soon as a hotplug event reports the device is back. Permission errors
// are terminal.
type supervisor struct {
	source frame.Source
	out    *frame.Mailbox
	delay  time.Duration
	logger *slog.Logger
	fatal  func(error)
	wake   chan struct{}

	mu    sync.Mutex
	state CameraState
}

func newSupervisor(source frame.Source, out *frame.Mailbox, delay time.Duration, logger *slog.Logger, fatal func(error)) *supervisor {
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	return &supervisor{
		source: source,
		out:    out,
		delay:  delay,
		logger: logging.NewComponentLogger(logger, "camera-supervisor"),
		fatal:  fatal,
		wake:   make(chan struct{}, 1),
		state:  CameraState{Source: source.Name()},
	}
}

func (s *supervisor) run(ctx context.Context) {
	for {
		s.update(func(st *CameraState) { st.Running = true })
		err := s.source.Run(ctx, s.out)
		s.update(func(st *CameraState) { st.Running = false })
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = services.Wrap(services.ErrDevice, "camera", "capture", "source exited", nil)
		}
		s.update(func(st *CameraState) {
			st.LastError = err.Error()
			st.LastErrorAt = time.Now()
		})

		if errors.Is(err, services.ErrPermission) {
			s.update(func(st *CameraState) { st.Failed = true })
			logging.ErrorWithContext(s.logger, "camera access denied; capture stopped",
				services.EventType(err),
				logging.Error(err),
				logging.String("source", s.source.Name()),
				logging.String(logging.FieldErrorHint, "add the daemon user to the video group or fix device permissions"),
				logging.String(logging.FieldImpact, "no frames will be scanned until the daemon restarts"),
			)
			if s.fatal != nil {
				s.fatal(err)
			}
			return
		}

		logging.WarnWithContext(s.logger, "camera source stopped; restarting",
			services.EventType(err),
			logging.Error(err),
			logging.String("source", s.source.Name()),
			logging.Duration("restart_delay", s.delay),
			logging.String(logging.FieldErrorHint, "check the camera connection and ffmpeg output"),
			logging.String(logging.FieldImpact, "scans wait until capture resumes"),
		)
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
		s.update(func(st *CameraState) { st.Restarts++ })
	}
}

// Wake cuts the current restart delay short. It never blocks.
func (s *supervisor) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// State returns a copy of the supervisor state.
func (s *supervisor) State() CameraState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *supervisor) update(fn func(*CameraState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
}

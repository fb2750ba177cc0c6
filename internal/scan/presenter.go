package scan

import (
	"sync"
	"time"
)

// DefaultStatusClearDelay is how long a status message stays visible.
const DefaultStatusClearDelay = time.Second

// Banner is the transient status line.
type Banner struct {
	Message string    `json:"message"`
	Visible bool      `json:"visible"`
	ShownAt time.Time `json:"shown_at,omitempty"`
	Version uint64    `json:"version"`
}

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Presenter shows one message at a time and hides it after a delay. Showing
// a new message replaces the pending hide timer.
type Presenter struct {
	mu     sync.Mutex
	delay  time.Duration
	banner Banner
	timer  stopper
	after  afterFunc
	now    func() time.Time
}

// NewPresenter builds a presenter. A non-positive delay uses DefaultStatusClearDelay.
func NewPresenter(delay time.Duration) *Presenter {
	if delay <= 0 {
		delay = DefaultStatusClearDelay
	}
	return &Presenter{delay: delay, after: realAfterFunc, now: time.Now}
}

// Show displays message and restarts the hide timer.
func (p *Presenter) Show(message string) Banner {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.banner.Version++
	p.banner.Message = message
	p.banner.Visible = true
	p.banner.ShownAt = p.now()

	version := p.banner.Version
	p.timer = p.after(p.delay, func() { p.hide(version) })
	return p.banner
}

func (p *Presenter) hide(version uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// a stale timer that fired before Stop took effect must not hide a newer message
	if p.banner.Version != version {
		return
	}
	p.banner.Visible = false
	p.timer = nil
}

// Current returns the banner state.
func (p *Presenter) Current() Banner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.banner
}

// Stop cancels any pending hide timer and hides the banner, since nothing
// will clear it afterwards. The message text is kept.
func (p *Presenter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.banner.Visible = false
}

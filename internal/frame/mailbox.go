package frame

import "sync"

// Stats reports mailbox throughput counters.
type Stats struct {
	Offered uint64 `json:"offered"`
	Dropped uint64 `json:"dropped"`
	Taken   uint64 `json:"taken"`
}

// Mailbox is a single-slot, latest-only frame holder. Offer never blocks;
// an unread frame is replaced by a newer one.
type Mailbox struct {
	mu     sync.Mutex
	latest *Frame
	stats  Stats
	ready  chan struct{}
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Offer stores f as the latest frame. It reports whether an unread frame was
// replaced.
func (m *Mailbox) Offer(f Frame) bool {
	m.mu.Lock()
	replaced := m.latest != nil
	if replaced {
		m.stats.Dropped++
	}
	m.stats.Offered++
	m.latest = &f
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Ready signals that a frame may be available. A receive must be followed by
// Take, which can still report false if another reader won the race.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Take removes and returns the latest frame.
func (m *Mailbox) Take() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return Frame{}, false
	}
	f := *m.latest
	m.latest = nil
	m.stats.Taken++
	return f, true
}

// Stats returns a copy of the counters.
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

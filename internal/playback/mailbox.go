package playback

import "sync"

// mailbox is an unbounded event inbox. put never blocks, which keeps Enqueue
// and the player/loader callbacks non-blocking regardless of how busy the
// event goroutine is.
type mailbox struct {
	mu     sync.Mutex
	events []event
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) put(e event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// take drains all pending events. Returns nil when the mailbox is empty.
func (m *mailbox) take() []event {
	m.mu.Lock()
	events := m.events
	m.events = nil
	m.mu.Unlock()
	return events
}

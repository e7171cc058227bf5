// Package events provides the change-notification hooks entities expose.
// A Hook is a minimal multicast point: external code subscribes a callback
// and the owning entity fires it after a successful, changed, persisted
// state update. Hooks are nil-safe: calling Fire on a nil *Hook is a no-op,
// so entities do not need guard checks.
package events

import "sync"

// Hook is an ordered list of zero-argument subscribers. Fire invokes them
// synchronously, in registration order, on the caller's goroutine. There is
// no error isolation between subscribers: a panicking subscriber aborts the
// remaining notifications.
type Hook struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn func()
}

// Subscribe registers fn and returns a function that removes it again.
// The returned unsubscribe is safe to call more than once.
func (h *Hook) Subscribe(fn func()) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs = append(h.subs, subscriber{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Fire invokes all subscribers in registration order. Safe to call on a nil
// receiver (no-op). Subscribers registered or removed during Fire do not
// affect the in-flight notification.
func (h *Hook) Fire() {
	if h == nil {
		return
	}
	h.mu.Lock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hook) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Package notify implements the in-process change signal every data consumer
// subscribes to. The broadcast carries no payload: listeners re-read whichever
// collection they care about.
package notify

import "sync"

// Listener is invoked synchronously on every broadcast.
type Listener func()

// Notifier is a synchronous observer bus. Listeners run in registration
// order; unsubscribing during a broadcast (including a listener removing
// itself) is safe and never skips remaining live listeners.
//
// One Notifier is constructed per process and passed by reference to every
// component that needs it.
type Notifier struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []*Subscription
}

// Subscription is the disposable handle returned by Subscribe.
type Subscription struct {
	id       uint64
	notifier *Notifier
	fn       Listener
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers fn to run on every broadcast, after all previously
// registered listeners.
func (n *Notifier) Subscribe(fn Listener) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := &Subscription{id: n.nextID, notifier: n, fn: fn}
	n.listeners = append(n.listeners, sub)
	return sub
}

// Unsubscribe removes the listener. Safe to call at any time, including from
// inside the listener itself during a broadcast, and safe to call twice.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.notifier == nil {
		return
	}
	n := s.notifier
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.listeners {
		if sub.id == s.id {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// Notify invokes every currently registered listener in registration order.
// The call is synchronous: it returns only after the last listener has run.
// Listeners unsubscribed mid-broadcast by an earlier listener are not
// invoked.
func (n *Notifier) Notify() {
	n.mu.Lock()
	snapshot := make([]*Subscription, len(n.listeners))
	copy(snapshot, n.listeners)
	n.mu.Unlock()

	for _, sub := range snapshot {
		if n.alive(sub.id) {
			sub.fn()
		}
	}
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

func (n *Notifier) alive(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.listeners {
		if sub.id == id {
			return true
		}
	}
	return false
}

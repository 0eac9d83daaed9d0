// Package notify implements a subscription-based listener set.
//
// Listeners are keyed by subscription id rather than by function
// identity, so removal goes through the handle returned at registration.
// Listeners are invoked outside the notifier's lock, which makes it safe
// for a listener to subscribe or unsubscribe during delivery.
package notify

import "sync"

// Notifier delivers a payload to every subscribed listener.
type Notifier[T any] struct {
	mu        sync.RWMutex
	listeners map[uint64]func(T)
	nextID    uint64
}

// New creates an empty notifier.
func New[T any]() *Notifier[T] {
	return &Notifier[T]{
		listeners: make(map[uint64]func(T)),
	}
}

// Subscribe registers fn and returns its handle. A nil fn yields a nil
// handle, which Unsubscribe treats as a no-op.
func (n *Notifier[T]) Subscribe(fn func(T)) *Subscription[T] {
	if fn == nil {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.listeners[id] = fn
	return &Subscription[T]{notifier: n, id: id}
}

// Notify invokes every listener with v. Listeners run outside the lock;
// a panicking listener propagates to the caller.
func (n *Notifier[T]) Notify(v T) {
	n.mu.RLock()
	fns := make([]func(T), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier[T]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Clear removes every listener. Outstanding handles become no-ops.
func (n *Notifier[T]) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = make(map[uint64]func(T))
}

func (n *Notifier[T]) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, id)
}

// Subscription identifies one registered listener.
type Subscription[T any] struct {
	notifier *Notifier[T]
	id       uint64
}

// Unsubscribe removes the listener. Safe to call more than once and on a
// nil subscription.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil || s.notifier == nil {
		return
	}
	s.notifier.remove(s.id)
	s.notifier = nil
}

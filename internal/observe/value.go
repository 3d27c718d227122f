// Package observe provides a minimal observable state container. Each store
// holds its state in a Value and publishes a snapshot to every subscriber on
// change; late subscribers immediately receive the current snapshot.
//
// Delivery is best-effort: a subscriber that stops draining its channel loses
// intermediate snapshots but always eventually sees the latest one, which is
// the only guarantee the UI needs.
package observe

import "sync"

// subscriberBuffer is the per-subscriber channel depth. Snapshots beyond it
// are coalesced by dropping the oldest queued value.
const subscriberBuffer = 16

// Value holds a current snapshot of type T and fans out updates.
type Value[T any] struct {
	mu      sync.RWMutex
	current T
	subs    map[int]chan T
	nextID  int
}

// NewValue creates a Value with an initial snapshot.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[int]chan T),
	}
}

// Get returns the current snapshot.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set stores a new snapshot and broadcasts it to all subscribers.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = next
	for _, ch := range v.subs {
		select {
		case ch <- next:
		default:
			// Subscriber is behind: drop its oldest queued snapshot to make
			// room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber. The current snapshot is delivered
// immediately. The returned cancel function must be called to release the
// subscription.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++

	ch := make(chan T, subscriberBuffer)
	ch <- v.current
	v.subs[id] = ch

	cancel := func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscriptions.
func (v *Value[T]) SubscriberCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

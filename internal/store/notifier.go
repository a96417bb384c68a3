package store

import "sync"

// Notifier fans payload-free invalidation signals out to subscribers.
// Callbacks run on a per-subscription goroutine, never under the notifier
// lock, and a signal arriving while one is still pending is coalesced, so
// a slow consumer sees at least one callback per burst rather than one per
// insert.
type Notifier struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is the handle returned by SubscribeOnInsert. Unsubscribe is
// idempotent and must run on every exit path of the subscriber.
type Subscription struct {
	wake chan struct{}
	stop chan struct{}
	once sync.Once
	drop func(*Subscription)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers fn and starts its delivery goroutine.
func (n *Notifier) Subscribe(fn func()) *Subscription {
	sub := &Subscription{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	sub.drop = func(s *Subscription) {
		n.mu.Lock()
		delete(n.subs, s)
		n.mu.Unlock()
	}
	n.mu.Lock()
	n.subs[sub] = struct{}{}
	n.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.stop:
				return
			case <-sub.wake:
				fn()
			}
		}
	}()
	return sub
}

// Notify wakes every live subscription.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		select {
		case sub.wake <- struct{}{}:
		default:
			// a signal is already pending; coalesce
		}
	}
}

// Unsubscribe stops delivery. Callbacks already running may still finish.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stop)
		if s.drop != nil {
			s.drop(s)
		}
	})
}

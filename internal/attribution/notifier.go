package attribution

import "sync"

// Listener receives the new attribution identifier after a real write.
type Listener func(identifier string)

type subscriber struct {
	id int
	fn Listener
}

// Notifier broadcasts identifier changes. The single-slot callback is kept
// as subscriber 0 and always runs first; other subscribers run in
// subscription order. Listeners run synchronously on the goroutine that
// performed the write.
type Notifier struct {
	mu   sync.RWMutex
	subs []subscriber
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{next: 1}
}

// Subscribe adds fn and returns a function removing it.
func (n *Notifier) Subscribe(fn Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs = append(n.subs, subscriber{id: id, fn: fn})
	n.mu.Unlock()
	return func() { n.remove(id) }
}

// SetCallback replaces the single-slot callback; nil clears it.
func (n *Notifier) SetCallback(fn Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rest := n.subs[:0:0]
	for _, s := range n.subs {
		if s.id != 0 {
			rest = append(rest, s)
		}
	}
	if fn != nil {
		rest = append([]subscriber{{id: 0, fn: fn}}, rest...)
	}
	n.subs = rest
}

func (n *Notifier) Notify(identifier string) {
	n.mu.RLock()
	subs := make([]subscriber, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()
	for _, s := range subs {
		s.fn(identifier)
	}
}

func (n *Notifier) remove(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

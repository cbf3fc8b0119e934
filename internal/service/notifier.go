package service

import "sync"

// notifier fans state snapshots out to subscribers. Callbacks run outside the
// lock, in subscription order.
type notifier[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
	ids  []int
}

func (n *notifier[T]) subscribe(fn func(T)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(T))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.ids = append(n.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			for i, v := range n.ids {
				if v == id {
					n.ids = append(n.ids[:i], n.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (n *notifier[T]) publish(v T) {
	n.mu.Lock()
	fns := make([]func(T), 0, len(n.ids))
	for _, id := range n.ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

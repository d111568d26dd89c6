package ws

import (
	"context"
	"fmt"
	"sync"

	"marketplace-client/internal/logging"
)

// listeners is an ordered subscriber list for one event kind. Emission
// works on a snapshot, so subscribers may unsubscribe from inside a
// callback.
type listeners[T any] struct {
	kind string
	log  logging.Logger

	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func newListeners[T any](kind string, log logging.Logger) *listeners[T] {
	return &listeners[T]{kind: kind, log: log}
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	l.next++
	id := l.next
	l.subs = append(l.subs, subscriber[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s.id == id {
			l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	snapshot := make([]subscriber[T], len(l.subs))
	copy(snapshot, l.subs)
	l.mu.Unlock()

	for _, s := range snapshot {
		l.call(s, v)
	}
}

func (l *listeners[T]) call(s subscriber[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error(context.Background(), "listener panicked",
				"kind", l.kind, "panic", fmt.Sprint(r))
		}
	}()
	s.fn(v)
}

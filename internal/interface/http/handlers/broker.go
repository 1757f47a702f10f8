package handlers

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

const listenerBufferSize = 32

type listener[T any] struct {
	id string
	ch chan T
}

// broker fans out messages to every registered listener. Slow listeners
// that can't keep up are skipped rather than blocking the others.
type broker[T any] struct {
	lock      *sync.Mutex
	listeners []*listener[T]
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		lock:      &sync.Mutex{},
		listeners: make([]*listener[T], 0),
	}
}

func (h *broker[T]) pushListener(l *listener[T]) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.listeners = append(h.listeners, l)
}

func (h *broker[T]) removeListener(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for i, listener := range h.listeners {
		if listener.id == id {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

func (h *broker[T]) publish(msg T) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for _, l := range h.listeners {
		select {
		case l.ch <- msg:
		default:
			log.Warnf("listener %s is too slow, dropped event", l.id)
		}
	}
}

func (h *broker[T]) count() int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.listeners)
}

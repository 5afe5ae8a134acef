package crowd

import (
	"sync"
)

// eventLocks hands out one mutex per event id so the
// read-evaluate-append critical section is serialized per event while
// unrelated events proceed fully in parallel. Entries live for the
// process lifetime; a mutex is a few words, so even many thousands of
// events stay cheap.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex for an event id, creating it on first use.
func (e *eventLocks) lockFor(eventID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[eventID] = l
	}
	return l
}

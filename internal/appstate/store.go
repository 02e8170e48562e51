package appstate

import (
	"sync"
)

// Listener observes every dispatched action together with the resulting state.
type Listener func(State, Action)

// Store holds the current State and serializes dispatches.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewStore returns a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{state: initial.clone(), listeners: make(map[int]Listener)}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Dispatch reduces action into the state and notifies listeners outside the lock.
func (s *Store) Dispatch(action Action) State {
	if action == nil {
		return s.State()
	}
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	snapshot := s.state.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot.clone(), action)
	}
	return snapshot
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Sink is what services write results into. *Store satisfies it directly;
// screens wrap it to drop results from superseded instances.
type Sink interface {
	State() State
	Dispatch(Action) State
}

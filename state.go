//////////////////////////////////////////////////////////////////////////////
//
// Channel lifecycle states and the observable state feed
//
//////////////////////////////////////////////////////////////////////////////

package blackbox

import (
	"sync"
)

// StateKind enumerates the lifecycle states of a channel.
type StateKind int

const (
	StateIdle StateKind = iota
	StateReady
	StateDecoding
	StateCompleted
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateDecoding:
		return "decoding"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ChannelState is the current lifecycle state of a channel. Message is set
// only for StateError and carries a human-readable diagnosis.
type ChannelState struct {
	Kind    StateKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

func (s ChannelState) String() string {
	if s.Kind == StateError {
		return "error: " + s.Message
	}
	return s.Kind.String()
}

// errorState builds the Error state for a failure.
func errorState(err error) ChannelState {
	return ChannelState{Kind: StateError, Message: err.Error()}
}

// stateFeed holds a channel's current state and fans every transition out to
// subscribers, in order. Mutation and notification happen under one lock, so
// a transition is observed as a single step and transitions never interleave.
type stateFeed struct {
	mu          sync.Mutex
	state       ChannelState
	subscribers []chan ChannelState
	closed      bool
}

func newStateFeed() *stateFeed {
	return &stateFeed{state: ChannelState{Kind: StateIdle}}
}

// get returns the current state.
func (f *stateFeed) get() ChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// set transitions to s and notifies every subscriber before returning.
// Setting the current state again is a no-op; observers only ever see
// distinct consecutive values.
func (f *stateFeed) set(s ChannelState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || s == f.state {
		return
	}
	f.state = s

	for _, sub := range f.subscribers {
		// No drops: a slow subscriber backpressures transitions once its
		// queue fills. Subscribers are expected to drain promptly.
		sub <- s
	}
}

// setFrom transitions to s only if the current state has kind from, and
// reports whether the transition happened.
func (f *stateFeed) setFrom(from StateKind, s ChannelState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.state.Kind != from || s == f.state {
		return false
	}
	f.state = s
	for _, sub := range f.subscribers {
		sub <- s
	}
	return true
}

// subscribe registers a new observer with a queue of the given capacity.
// The current state is delivered before subscribe returns, then every
// subsequent transition in order until unsubscribe.
func (f *stateFeed) subscribe(capacity int) <-chan ChannelState {
	if capacity < 1 {
		panic("stateFeed: subscriber capacity must be nonzero")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s := make(chan ChannelState, capacity)
	s <- f.state
	if f.closed {
		close(s)
		return s
	}
	f.subscribers = append(f.subscribers, s)
	return s
}

// unsubscribe removes the observer registered as s, drains its queue and
// closes it.
func (f *stateFeed) unsubscribe(s <-chan ChannelState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Find and delete s from the subscribers list.
	// See https://github.com/golang/go/wiki/SliceTricks
	for i, sub := range f.subscribers {
		if s == sub {
			subs := f.subscribers
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			f.subscribers = subs[:len(subs)-1]
			close(sub)
			for len(sub) > 0 {
				<-sub // Drain
			}
			return nil
		}
	}
	return errSubscriberNotFound
}

// close shuts the feed down. All subscriber queues are drained and closed.
func (f *stateFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for _, sub := range f.subscribers {
		close(sub)
		for len(sub) > 0 {
			<-sub // Drain
		}
	}
	f.subscribers = nil
}

package settings

import (
	"context"
	"sync"
	"time"
)

// State is the wizard position of one user.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingInterval State = "awaiting_interval"
	StateAwaitingText     State = "awaiting_text"
	StateAwaitingImage    State = "awaiting_image"
)

const (
	// stateTTL is the sliding inactivity window after which an abandoned
	// wizard session is discarded.
	stateTTL = 10 * time.Minute
	// sweepEvery bounds how stale an expired entry can linger before the
	// background sweep removes it. Reads also check expiry, so a stale
	// entry is never acted on in between sweeps.
	sweepEvery = time.Minute
)

type stateEntry struct {
	state State
	// menuMsg is the wizard menu message, edited in place as the user
	// moves through the flow.
	menuMsg int
	touched time.Time
}

// States tracks per-user wizard sessions with a sliding expiry.
type States struct {
	mu      sync.Mutex
	entries map[int64]stateEntry
	now     func() time.Time // test hook
}

func NewStates() *States {
	return &States{
		entries: make(map[int64]stateEntry),
		now:     time.Now,
	}
}

// Get returns the user's current state, treating expired entries as absent.
// A live entry has its expiry window extended.
func (s *States) Get(userID int64) (State, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return StateIdle, 0, false
	}
	now := s.now()
	if now.Sub(e.touched) >= stateTTL {
		delete(s.entries, userID)
		return StateIdle, 0, false
	}
	e.touched = now
	s.entries[userID] = e
	return e.state, e.menuMsg, true
}

// Set installs or replaces the user's state and resets the expiry window.
func (s *States) Set(userID int64, st State, menuMsg int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = stateEntry{state: st, menuMsg: menuMsg, touched: s.now()}
}

// Delete removes the user's session, if any.
func (s *States) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Len reports the number of live sessions (expired entries included until
// the next sweep).
func (s *States) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops entries whose inactivity window has elapsed and returns how
// many were removed.
func (s *States) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.entries {
		if now.Sub(e.touched) >= stateTTL {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions periodically until ctx is done.
func (s *States) Run(ctx context.Context) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

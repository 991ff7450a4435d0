package settings

import "sync"

// Snapshot is the complete set of runtime-tunable values. Readers always get
// a copy, so a snapshot never changes after it is handed out.
type Snapshot struct {
	Greeting        string
	WarningText     string
	WarningImage    string
	IntervalMinutes int
}

// Update carries a partial change. Nil fields keep their current value.
type Update struct {
	Greeting        *string
	WarningText     *string
	WarningImage    *string
	IntervalMinutes *int
}

// Store guards the live snapshot. Apply replaces the whole snapshot under a
// single lock so concurrent readers never observe a half-applied update.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore(initial Snapshot) *Store {
	return &Store{snap: initial}
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Apply merges u into the current snapshot and installs the result atomically.
func (s *Store) Apply(u Update) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap
	if u.Greeting != nil {
		next.Greeting = *u.Greeting
	}
	if u.WarningText != nil {
		next.WarningText = *u.WarningText
	}
	if u.WarningImage != nil {
		next.WarningImage = *u.WarningImage
	}
	if u.IntervalMinutes != nil {
		next.IntervalMinutes = *u.IntervalMinutes
	}
	s.snap = next
	return next
}

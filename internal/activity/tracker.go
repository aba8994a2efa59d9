package activity

import (
	"sync"
	"time"
)

// Tracker records the wall-clock time of the last client-observed
// activity. Every served request touches it; the idle monitor reads it.
type Tracker struct {
	mu   sync.Mutex
	last time.Time
}

// NewTracker returns a tracker primed with the current time.
func NewTracker() *Tracker {
	return &Tracker{last: time.Now()}
}

// Touch records now as the last activity time.
func (t *Tracker) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Now()
}

// IdleDuration returns how long it has been since the last Touch.
func (t *Tracker) IdleDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.last)
}

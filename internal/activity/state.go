package activity

import "sync"

// State is the process-wide server availability.
type State string

const (
	// StateSleeping gates protected endpoints until a wakeup call.
	StateSleeping State = "sleeping"
	// StateAwake serves all endpoints.
	StateAwake State = "awake"
)

// Availability holds the sleep/awake state. The server starts sleeping;
// only an explicit wake arms it, and only the idle monitor puts it back
// to sleep.
type Availability struct {
	mu      sync.Mutex
	state   State
	tracker *Tracker
}

// NewAvailability returns a sleeping availability holder bound to the
// given activity tracker.
func NewAvailability(tracker *Tracker) *Availability {
	return &Availability{state: StateSleeping, tracker: tracker}
}

// State returns the current availability.
func (a *Availability) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Awake reports whether the server is serving protected requests.
func (a *Availability) Awake() bool {
	return a.State() == StateAwake
}

// Wake arms the server and resets the idle clock.
func (a *Availability) Wake() {
	a.mu.Lock()
	a.state = StateAwake
	a.mu.Unlock()
	a.tracker.Touch()
}

// Sleep puts the server into the dormant state. Called only by the idle
// monitor.
func (a *Availability) Sleep() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateSleeping
}

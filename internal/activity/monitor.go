package activity

import (
	"context"
	"os"
	"time"

	xlog "snatch/internal/log"
)

// Action is what the monitor does once the idle timeout elapses.
type Action func(*Availability)

// SleepAction puts the server to sleep until the next wakeup call.
func SleepAction(a *Availability) {
	a.Sleep()
}

// ShutdownAction terminates the process. This is the earliest revision's
// policy, kept behind configuration.
func ShutdownAction(*Availability) {
	os.Exit(0)
}

// Monitor periodically samples the activity tracker and applies the idle
// action once the server has been awake but unattended for the timeout.
// It is a sampling loop, so the transition lags the threshold by up to
// one interval. It runs for the process lifetime.
type Monitor struct {
	tracker  *Tracker
	avail    *Availability
	timeout  time.Duration
	interval time.Duration
	action   Action
}

// NewMonitor creates an idle monitor. A nil action defaults to SleepAction.
func NewMonitor(tracker *Tracker, avail *Availability, timeout, interval time.Duration, action Action) *Monitor {
	if action == nil {
		action = SleepAction
	}
	return &Monitor{
		tracker:  tracker,
		avail:    avail,
		timeout:  timeout,
		interval: interval,
		action:   action,
	}
}

// Run blocks, checking idleness every interval until ctx is done.
// Typically invoked as a goroutine from main.
func (m *Monitor) Run(ctx context.Context) {
	logger := xlog.WithComponent("idle-monitor")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.avail.Awake() {
				continue
			}
			idle := m.tracker.IdleDuration()
			if idle < m.timeout {
				continue
			}
			logger.Info().
				Dur("idle", idle).
				Dur("timeout", m.timeout).
				Msg("idle timeout reached")
			m.action(m.avail)
		}
	}
}
